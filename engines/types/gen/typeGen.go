// Command gen renders the engine type table into engines/types. It runs from
// that directory through go:generate.
package main

import (
	"bytes"
	"embed"
	"fmt"
	"go/format"
	"log"
	"os"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// engine is one row of the generated table.
type engine struct {
	Name        string
	Value       string
	Description string
	// Output labels a single result, Bench labels a timing line.
	Output string
	Bench  string
}

var engines = []engine{
	{
		Name:        "Interpreter",
		Value:       "interpreter",
		Description: "Tree-walking interpreter, re-evaluates the expression on every call",
		Output:      "Interpreted output",
		Bench:       "Interpreted",
	},
	{
		Name:        "JIT",
		Value:       "jit",
		Description: "Native code generation through WebAssembly and wazero",
		Output:      "Code gen output",
		Bench:       "JIT",
	},
	{
		Name:        "Starlark",
		Value:       "starlark",
		Description: "Formula transpiled to a Starlark function: https://github.com/google/starlark-go",
		Output:      "Starlark output",
		Bench:       "Starlark",
	},
	{
		Name:        "Extism",
		Value:       "extism",
		Description: "Generated routine packaged as an Extism plugin: https://extism.org/",
		Output:      "Extism output",
		Bench:       "Extism",
	},
}

// outputs maps each template to the file it renders, relative to engines/types.
var outputs = map[string]string{
	"type.go.tmpl":      "type.go",
	"type_test.go.tmpl": "type_test.go",
}

// render executes the named template over engines and gofmts the result.
func render(name string, rows []engine) ([]byte, error) {
	t, err := template.ParseFS(templateFS, "templates/"+name)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, struct{ Types []engine }{rows}); err != nil {
		return nil, fmt.Errorf("executing %s: %w", name, err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("formatting %s: %w", name, err)
	}
	return src, nil
}

func main() {
	for tmpl, out := range outputs {
		src, err := render(tmpl, engines)
		if err != nil {
			log.Fatal(err)
		}
		if err := os.WriteFile(out, src, 0o644); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Generated: %s\n", out)
	}
}
