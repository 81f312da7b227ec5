package widget

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// LabelConfig is the part of a labeling configuration the terminal widget
// understands: data fields to show and choice groups to answer.
type LabelConfig struct {
	Fields  []Field
	Choices []ChoiceGroup
}

// Field is a data field displayed to the annotator.
type Field struct {
	Name string
	Key  string // Data key, without the leading "$"
}

// ChoiceGroup is a set of choices applied to a field.
type ChoiceGroup struct {
	Name     string
	ToName   string
	Values   []string
	Multiple bool
}

// Has reports whether value is one of the group's choices.
func (g ChoiceGroup) Has(value string) bool {
	return slices.Contains(g.Values, value)
}

// Group returns the choice group named name.
func (c LabelConfig) Group(name string) (ChoiceGroup, bool) {
	for _, g := range c.Choices {
		if g.Name == name {
			return g, true
		}
	}
	return ChoiceGroup{}, false
}

var errEmptyConfig = errors.New("empty label config")

// dataTags are the object tags whose value references task data.
var dataTags = []string{"Text", "HyperText", "Header", "Paragraphs", "Image", "Audio"}

// ParseLabelConfig reads the choice groups and data fields of an XML config.
// Tags it does not know are ignored.
func ParseLabelConfig(config string) (LabelConfig, error) {
	if strings.TrimSpace(config) == "" {
		return LabelConfig{}, errEmptyConfig
	}

	var cfg LabelConfig
	var current *ChoiceGroup
	dec := xml.NewDecoder(strings.NewReader(config))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return LabelConfig{}, fmt.Errorf("parse label config: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			attrs := attrMap(t.Attr)
			switch {
			case t.Name.Local == "Choices":
				cfg.Choices = append(cfg.Choices, ChoiceGroup{
					Name:     attrs["name"],
					ToName:   attrs["toName"],
					Multiple: attrs["choice"] == "multiple",
				})
				current = &cfg.Choices[len(cfg.Choices)-1]
			case t.Name.Local == "Choice":
				if current == nil {
					return LabelConfig{}, fmt.Errorf("parse label config: Choice %q outside Choices", attrs["value"])
				}
				current.Values = append(current.Values, attrs["value"])
			case slices.Contains(dataTags, t.Name.Local):
				cfg.Fields = append(cfg.Fields, Field{
					Name: attrs["name"],
					Key:  strings.TrimPrefix(attrs["value"], "$"),
				})
			}
		case xml.EndElement:
			if t.Name.Local == "Choices" {
				current = nil
			}
		}
	}
	return cfg, nil
}

func attrMap(attrs []xml.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Name.Local] = a.Value
	}
	return m
}
