package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/weaviate/weaviate/entities/models"
)

// RenderSchema formats a class catalog as prompt text.
//
// # Description
//
// Produces one block per class with its properties and cross-references,
// the shape a model needs to write Get queries against the store.
// Classes are sorted by name so the rendering is stable across calls;
// properties keep their declared order.
//
// # Examples
//
//	Class: Station
//	Description: A tide monitoring station.
//	Properties:
//	  - name (text): Station name.
//	  - latitude (number)
//	References:
//	  - readings -> Observation: Gauge readings recorded here.
func RenderSchema(classes []*models.Class) string {
	if len(classes) == 0 {
		return "The graph contains no classes."
	}

	sorted := make([]*models.Class, len(classes))
	copy(sorted, classes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Class < sorted[j].Class })

	var b strings.Builder
	for i, class := range sorted {
		if class == nil {
			continue
		}
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Class: %s\n", class.Class)
		if class.Description != "" {
			fmt.Fprintf(&b, "Description: %s\n", class.Description)
		}

		properties, references := splitProperties(class.Properties)
		if len(properties) > 0 {
			b.WriteString("Properties:\n")
			for _, prop := range properties {
				writePropertyLine(&b, prop.Name, strings.Join(prop.DataType, ", "), prop.Description)
			}
		}
		if len(references) > 0 {
			b.WriteString("References:\n")
			for _, ref := range references {
				writeReferenceLine(&b, ref.Name, strings.Join(ref.DataType, ", "), ref.Description)
			}
		}
	}
	return b.String()
}

// splitProperties separates primitive properties from cross-references.
// Weaviate names primitive types in lowercase; a capitalized data type
// is a reference to another class.
func splitProperties(props []*models.Property) (properties, references []*models.Property) {
	for _, prop := range props {
		if prop == nil || len(prop.DataType) == 0 {
			continue
		}
		if isReferenceType(prop.DataType[0]) {
			references = append(references, prop)
		} else {
			properties = append(properties, prop)
		}
	}
	return properties, references
}

func isReferenceType(dataType string) bool {
	if dataType == "" {
		return false
	}
	first := dataType[0]
	return first >= 'A' && first <= 'Z'
}

func writePropertyLine(b *strings.Builder, name, dataType, description string) {
	if description != "" {
		fmt.Fprintf(b, "  - %s (%s): %s\n", name, dataType, description)
	} else {
		fmt.Fprintf(b, "  - %s (%s)\n", name, dataType)
	}
}

func writeReferenceLine(b *strings.Builder, name, target, description string) {
	if description != "" {
		fmt.Fprintf(b, "  - %s -> %s: %s\n", name, target, description)
	} else {
		fmt.Fprintf(b, "  - %s -> %s\n", name, target)
	}
}
