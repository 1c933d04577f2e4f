package parser

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

func newDecoder(text string) *xml.Decoder {
	dec := xml.NewDecoder(strings.NewReader(text))
	dec.Strict = true
	return dec
}

// openRoot advances to the document element and checks its name.
func openRoot(dec *xml.Decoder, name string) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("no <%s> element", name)
			}
			return err
		}
		if se, ok := tok.(xml.StartElement); ok {
			if se.Name.Local != name {
				return fmt.Errorf("root element <%s>, want <%s>", se.Name.Local, name)
			}
			return nil
		}
	}
}

// eachChild calls fn for every child element of the element whose start tag
// was just read, and returns after consuming its end tag. fn must consume the
// child through its end tag.
func eachChild(dec *xml.Decoder, fn func(se xml.StartElement) error) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := fn(t); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

// readText returns the trimmed character data of the current element.
// Text inside nested elements is ignored.
func readText(dec *xml.Decoder) (string, error) {
	var sb strings.Builder
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			if depth == 0 {
				sb.Write(t)
			}
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return strings.TrimSpace(sb.String()), nil
			}
			depth--
		}
	}
}

// readInt reads the element text as an integer. Empty or non-numeric text
// yields zero.
func readInt(dec *xml.Decoder) (int, error) {
	s, err := readText(dec)
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.Atoi(s)
	if convErr != nil {
		return 0, nil
	}
	return n, nil
}

// skip discards the current element and everything beneath it.
func skip(dec *xml.Decoder) error {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

type keyValue struct {
	code  string
	value string
}

// readProperties parses <properties><property><code/><value/></property>…
// Entries without a code are dropped.
func readProperties(dec *xml.Decoder) ([]keyValue, error) {
	var out []keyValue
	err := eachChild(dec, func(se xml.StartElement) error {
		if se.Name.Local != "property" {
			return skip(dec)
		}
		kv, err := readKeyValue(dec)
		if err != nil {
			return err
		}
		if kv.code != "" {
			out = append(out, kv)
		}
		return nil
	})
	return out, err
}

// readStyleRefs parses <styles><style><code/><value/></style>…
func readStyleRefs(dec *xml.Decoder) ([]keyValue, error) {
	var out []keyValue
	err := eachChild(dec, func(se xml.StartElement) error {
		if se.Name.Local != "style" {
			return skip(dec)
		}
		kv, err := readKeyValue(dec)
		if err != nil {
			return err
		}
		if kv.code != "" {
			out = append(out, kv)
		}
		return nil
	})
	return out, err
}

func readKeyValue(dec *xml.Decoder) (keyValue, error) {
	var kv keyValue
	err := eachChild(dec, func(se xml.StartElement) error {
		var err error
		switch se.Name.Local {
		case "code":
			kv.code, err = readText(dec)
		case "value":
			kv.value, err = readText(dec)
		default:
			err = skip(dec)
		}
		return err
	})
	return kv, err
}

func propertyMap(kvs []keyValue) map[string]string {
	if len(kvs) == 0 {
		return nil
	}
	m := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		m[kv.code] = kv.value
	}
	return m
}
