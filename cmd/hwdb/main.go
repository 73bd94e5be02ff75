// Command hwdb compiles hardware description source files into a binary
// database and answers modalias queries against it.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	hwdb_go "github.com/hwdbgo/hwdb.go"
	"github.com/hwdbgo/hwdb.go/format"
	"github.com/hwdbgo/hwdb.go/hwdb"
	"github.com/hwdbgo/hwdb.go/log"
)

const defaultOutput = "/etc/udev/hwdb.bin"

func main() {
	app := &cli.App{
		Name:  "hwdb",
		Usage: "hardware database management tool",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "loglevel",
				Usage: "sets the log level: debug, info, warn, err",
				Value: "info",
			},
		},
		Before: func(ctx *cli.Context) error {
			log.Init(ctx.String("loglevel"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "update",
				Usage: "compile the source files into the binary database",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "root",
						Usage: "directory searched for *.hwdb sources, later roots override earlier ones (repeatable)",
						Value: cli.NewStringSlice("/usr/lib/udev/hwdb.d", "/etc/udev/hwdb.d"),
					},
					&cli.StringFlag{
						Name:  "output",
						Usage: "path of the binary database",
						Value: defaultOutput,
					},
					&cli.BoolFlag{
						Name:  "strict",
						Usage: "fail on unreadable source files or malformed lines instead of skipping them",
					},
				},
				Action: runUpdate,
			},
			{
				Name:      "query",
				Usage:     "print the properties matching a modalias string",
				ArgsUsage: "MODALIAS",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "file",
						Usage: "database to query",
						Value: defaultOutput,
					},
				},
				Action: runQuery,
			},
			{
				Name:  "export",
				Usage: "dump the database as a binary key/value stream",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "file",
						Usage: "database to export",
						Value: defaultOutput,
					},
					&cli.StringFlag{
						Name:     "to",
						Usage:    "target stream file",
						Required: true,
					},
				},
				Action: runExport,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runUpdate(ctx *cli.Context) error {
	res, err := hwdb.Compile(hwdb.Config{
		Roots:  ctx.StringSlice("root"),
		Output: ctx.String("output"),
		Strict: ctx.Bool("strict"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d nodes, %d bytes, fingerprint %x\n",
		ctx.String("output"), res.Stats.Nodes, res.Stats.FileSize, res.Fingerprint)
	return nil
}

func runQuery(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.Exit("exactly one MODALIAS argument expected", 1)
	}
	r, err := format.Open(ctx.String("file"))
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	props, err := r.Query(ctx.Args().First())
	if err != nil {
		return err
	}
	for _, p := range props {
		fmt.Printf("%s=%s\n", p.Key, p.Value)
	}
	return nil
}

func runExport(ctx *cli.Context) error {
	r, err := format.Open(ctx.String("file"))
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	w, err := hwdb_go.CreateKVStreamFile(ctx.String("to"))
	if err != nil {
		return err
	}
	werr := r.Walk(func(pattern, key, value []byte) bool {
		err = w.Write(hwdb_go.Concat(pattern, byte(0), key), value)
		return err == nil
	})
	if cerr := w.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if werr != nil {
		return werr
	}
	if err != nil {
		return err
	}
	n, bytesTotal := w.Stats()
	log.Infof("exported %d records, %d bytes", n, bytesTotal)
	return nil
}
