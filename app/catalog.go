package app

import (
	"encoding/json"
	"io"

	"demounit/internal/validation"
)

// ExportCatalog writes the test catalog as a JSON array with sorted keys
// and four-space indentation.
func ExportCatalog(w io.Writer) error {
	data, err := json.Marshal(validation.Catalog())
	if err != nil {
		return err
	}
	// decoding into generic maps makes the encoder sort every key
	var generic []map[string]interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	out, err := json.MarshalIndent(generic, "", "    ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(out, '\n'))
	return err
}
