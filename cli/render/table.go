package render

import (
	"fmt"
	"reflect"
	"strings"
	"text/tabwriter"

	"github.com/pithecene-io/cicore/types"
)

// column is one exported struct field shown in a table.
type column struct {
	name  string
	index int
}

// renderTable prints a slice of structs as rows under a header, or a
// single struct as "name: value" lines.
func (r *Renderer) renderTable(data any) error {
	v := reflect.Indirect(reflect.ValueOf(data))
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)

	switch v.Kind() {
	case reflect.Slice:
		if v.Len() == 0 {
			fmt.Fprintln(r.out, "(no results)")
			return nil
		}
		cols := columns(v.Type().Elem())
		names := make([]string, len(cols))
		for i, c := range cols {
			names[i] = c.name
		}
		fmt.Fprintln(w, strings.Join(names, "\t"))
		for i := range v.Len() {
			fmt.Fprintln(w, strings.Join(r.cells(v.Index(i), cols), "\t"))
		}
	case reflect.Struct:
		cols := columns(v.Type())
		for i, cell := range r.cells(v, cols) {
			fmt.Fprintf(w, "%s:\t%s\n", cols[i].name, cell)
		}
	default:
		fmt.Fprintf(w, "%v\n", data)
	}

	return w.Flush()
}

// columns lists the exported fields of t, named by their json tag.
func columns(t reflect.Type) []column {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return []column{{name: "value", index: -1}}
	}

	var cols []column
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			continue
		case "":
			name = strings.ToLower(f.Name)
		}
		cols = append(cols, column{name: name, index: i})
	}
	return cols
}

func (r *Renderer) cells(row reflect.Value, cols []column) []string {
	row = reflect.Indirect(row)
	out := make([]string, len(cols))
	for i, c := range cols {
		if c.index < 0 {
			out[i] = r.cell(row)
			continue
		}
		out[i] = r.cell(row.Field(c.index))
	}
	return out
}

func (r *Renderer) cell(v reflect.Value) string {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return ""
	}

	if st, ok := v.Interface().(types.Status); ok {
		return r.styles.render(st)
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "[]"
		}
		if v.Type().Elem().Kind() == reflect.Struct {
			return fmt.Sprintf("[%d items]", v.Len())
		}
		parts := make([]string, v.Len())
		for i := range parts {
			parts[i] = fmt.Sprint(v.Index(i).Interface())
		}
		return strings.Join(parts, ",")
	case reflect.Map:
		return fmt.Sprintf("{%d keys}", v.Len())
	case reflect.Struct:
		return "{...}"
	default:
		return fmt.Sprint(v.Interface())
	}
}
