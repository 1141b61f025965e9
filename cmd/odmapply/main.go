package main

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/sanity-io/odm"
	"github.com/sanity-io/odm/internal/cliutil"
	"github.com/sanity-io/odm/pkg/odmmsgpack"
)

const version = "0.1.0"

const usage = `Apply a set of field updates to a JSON document.

Usage:
    odmapply [--msgpack] [--now=<time>] <document> <updates>
    odmapply -h | --help
    odmapply --version

Options:
    -h --help     Show this screen.
    --version     Show version.
    --msgpack     Read the update set as msgpack instead of JSON.
    --now=<time>  RFC 3339 time used for server timestamps [default: now].`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		logrus.Fatal(err)
	}

	if err := run(opts, os.Stdout); err != nil {
		logrus.Fatal(err)
	}
}

func run(opts docopt.Opts, out io.Writer) error {
	docPath, _ := opts.String("<document>")
	updatesPath, _ := opts.String("<updates>")

	options := odm.DefaultOptions
	if now, _ := opts.String("--now"); now != "" && now != "now" {
		t, err := time.Parse(time.RFC3339Nano, now)
		if err != nil {
			return errors.Wrap(err, "--now")
		}
		options = options.WithClock(func() time.Time { return t })
	}

	doc, err := cliutil.ReadDocument(docPath)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(updatesPath)
	if err != nil {
		return err
	}

	var updates odm.Updates
	if useMsgpack, _ := opts.Bool("--msgpack"); useMsgpack {
		updates, err = odmmsgpack.Unmarshal(content)
	} else {
		err = json.Unmarshal(content, &updates)
	}
	if err != nil {
		return errors.Wrapf(err, "decode %s", updatesPath)
	}

	result, err := options.ApplyUpdates(doc, updates)
	if err != nil {
		return err
	}

	return json.NewEncoder(out).Encode(result)
}
