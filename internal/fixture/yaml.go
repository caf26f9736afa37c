package fixture

import (
	"io"

	"gopkg.in/yaml.v3"
)

func yamlEncode(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(doc)
}

func yamlDecode(r io.Reader, doc *Document) error {
	return yaml.NewDecoder(r).Decode(doc)
}
