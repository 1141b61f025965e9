// Package cliutil holds the document loading shared by the command line tools.
package cliutil

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/sanity-io/odm"
)

// ReadDocument reads a JSON object from a file, or from stdin when path is "-".
func ReadDocument(path string) (map[string]interface{}, error) {
	file := os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		file = f
	}

	dec := json.NewDecoder(file)
	dec.UseNumber()

	var doc map[string]interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	if doc == nil {
		return nil, errors.Errorf("%s: expected a JSON object", path)
	}

	odm.Normalize(doc)
	return doc, nil
}
