package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/docopt/docopt-go"
	"github.com/sirupsen/logrus"

	"github.com/sanity-io/odm"
	"github.com/sanity-io/odm/internal/cliutil"
	"github.com/sanity-io/odm/pkg/odmmsgpack"
)

const version = "0.1.0"

const usage = `Print the field updates which turn one JSON document into another.

Usage:
    odmdiff [--no-transform] [--msgpack] <left> <right>
    odmdiff --structural <left> <right>
    odmdiff -h | --help
    odmdiff --version

Options:
    -h --help       Show this screen.
    --version       Show version.
    --no-transform  Write changed numbers as plain values instead of increments.
    --msgpack       Write the update set as msgpack instead of JSON.
    --structural    Print the element by element diff, including moves.`

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
	leftPath, _ := opts.String("<left>")
	rightPath, _ := opts.String("<right>")

	left, err := cliutil.ReadDocument(leftPath)
	if err != nil {
		return err
	}
	right, err := cliutil.ReadDocument(rightPath)
	if err != nil {
		return err
	}

	if structural, _ := opts.Bool("--structural"); structural {
		return printDiff(out, odm.Diff(left, right, false))
	}

	noTransform, _ := opts.Bool("--no-transform")
	updates, err := odm.GenerateUpdates(left, right, noTransform)
	if err != nil {
		return err
	}

	if useMsgpack, _ := opts.Bool("--msgpack"); useMsgpack {
		b, err := odmmsgpack.Marshal(updates)
		if err != nil {
			return err
		}
		_, err = out.Write(b)
		return err
	}

	return json.NewEncoder(out).Encode(updates)
}

func printDiff(out io.Writer, node *odm.DiffNode) error {
	return node.Walk(func(path []odm.Key, change odm.Change) error {
		field := ""
		for _, key := range path {
			field = odm.JoinFieldPath(field, key.String())
		}
		_, err := fmt.Fprintf(out, "%s\t%s\n", field, describe(change))
		return err
	})
}

func describe(change odm.Change) string {
	switch change := change.(type) {
	case odm.ChangeAdded:
		return "added " + encode(change.Value)
	case odm.ChangeRemoved:
		return "removed " + encode(change.Value)
	case odm.ChangeModified:
		return "modified " + encode(change.Old) + " -> " + encode(change.New)
	case odm.ChangeMoved:
		return fmt.Sprintf("moved from %d", change.OldIndex)
	case odm.ChangeArrayUnion:
		return "append " + encode(change.Items)
	case odm.ChangeArrayRemove:
		return "truncate " + encode(change.Items)
	}
	return fmt.Sprintf("%T", change)
}

func encode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
