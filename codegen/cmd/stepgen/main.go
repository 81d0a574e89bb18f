// stepgen parses Go source files looking for behavior config structs
// annotated with @step and generates the behavior metadata file.
//
// Usage: go run ./codegen/cmd/stepgen [-o file] [-pkg name] ./steps
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"slices"
	"strings"
	"unicode"
)

// BehaviorMetadata describes one step type
type BehaviorMetadata struct {
	Name        string      `json:"name"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Params      []ParamMeta `json:"params"`
}

// ParamMeta describes one step_config key
type ParamMeta struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Default     string `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
}

// stepCommentRegex matches @step comments
// Format: @step name=xxx category=xxx description=xxx
var stepCommentRegex = regexp.MustCompile(`@step\s+(.+)`)

var stepCommentKeys = []string{"name", "category", "description"}

func main() {
	out := flag.String("o", "behaviors_gen.go", "output file, relative to the scanned directory")
	pkg := flag.String("pkg", "steps", "package name of the generated file")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-o file] [-pkg name] <directory>\n", os.Args[0])
		os.Exit(1)
	}

	dir := flag.Arg(0)
	behaviors, err := parseDirectory(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing directory: %v\n", err)
		os.Exit(1)
	}

	if len(behaviors) == 0 {
		fmt.Println("No behavior configs found")
		return
	}

	code, err := renderRegistry(*pkg, behaviors)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering metadata: %v\n", err)
		os.Exit(1)
	}

	path := filepath.Join(dir, *out)
	if err := os.WriteFile(path, code, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing Go file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated %s (%d behaviors)\n", path, len(behaviors))
}

// parseDirectory returns the annotated behaviors of dir sorted by name
func parseDirectory(dir string) ([]BehaviorMetadata, error) {
	fset := token.NewFileSet()
	var behaviors []BehaviorMetadata

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") {
			continue
		}
		if strings.HasSuffix(name, "_gen.go") || strings.HasSuffix(name, "_test.go") {
			continue
		}

		filePath := filepath.Join(dir, name)
		fileBehaviors, err := parseFile(fset, filePath)
		if err != nil {
			return nil, fmt.Errorf("error parsing %s: %w", filePath, err)
		}
		behaviors = append(behaviors, fileBehaviors...)
	}

	slices.SortFunc(behaviors, func(a, b BehaviorMetadata) int { return strings.Compare(a.Name, b.Name) })
	for i := 1; i < len(behaviors); i++ {
		if behaviors[i].Name == behaviors[i-1].Name {
			return nil, fmt.Errorf("step type %q is declared twice", behaviors[i].Name)
		}
	}

	return behaviors, nil
}

func parseFile(fset *token.FileSet, filePath string) ([]BehaviorMetadata, error) {
	file, err := parser.ParseFile(fset, filePath, nil, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	var behaviors []BehaviorMetadata

	for _, decl := range file.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.TYPE {
			continue
		}

		for _, spec := range genDecl.Specs {
			typeSpec, ok := spec.(*ast.TypeSpec)
			if !ok || !strings.HasSuffix(typeSpec.Name.Name, "Config") {
				continue
			}

			structType, ok := typeSpec.Type.(*ast.StructType)
			if !ok {
				continue
			}

			doc := typeSpec.Doc
			if doc == nil {
				doc = genDecl.Doc
			}
			meta := parseStepComment(doc)
			if meta == nil {
				continue
			}

			meta.Params = parseStructFields(structType)
			behaviors = append(behaviors, *meta)
		}
	}

	return behaviors, nil
}

func parseStepComment(doc *ast.CommentGroup) *BehaviorMetadata {
	if doc == nil {
		return nil
	}

	for _, comment := range doc.List {
		text := strings.TrimSpace(strings.TrimPrefix(comment.Text, "//"))

		match := stepCommentRegex.FindStringSubmatch(text)
		if match == nil {
			continue
		}

		params := match[1]
		meta := &BehaviorMetadata{
			Name:        extractValue(params, "name"),
			Category:    extractValue(params, "category"),
			Description: extractValue(params, "description"),
			Params:      []ParamMeta{},
		}
		if meta.Name != "" {
			return meta
		}
	}

	return nil
}

// extractValue returns the value of key, which runs until the next known key
func extractValue(params, key string) string {
	prefix := key + "="
	idx := strings.Index(params, prefix)
	if idx == -1 {
		return ""
	}

	rest := params[idx+len(prefix):]
	end := len(rest)
	for _, other := range stepCommentKeys {
		if i := strings.Index(rest, " "+other+"="); i != -1 && i < end {
			end = i
		}
	}

	return strings.TrimSpace(rest[:end])
}

func parseStructFields(structType *ast.StructType) []ParamMeta {
	params := []ParamMeta{}

	for _, field := range structType.Fields.List {
		if len(field.Names) == 0 {
			continue
		}

		param := ParamMeta{
			Name: toSnakeCase(field.Names[0].Name),
			Type: typeToString(field.Type),
		}

		if field.Tag != nil {
			tag := reflect.StructTag(strings.Trim(field.Tag.Value, "`"))
			if stepTag := tag.Get("step"); stepTag != "" {
				parseStepTag(stepTag, &param)
			}
		}

		params = append(params, param)
	}

	return params
}

// parseStepTag reads `step:"name=x,required,default=y,desc=z"`.
// desc must come last since descriptions may contain commas.
func parseStepTag(tag string, param *ParamMeta) {
	if i := strings.Index(tag, "desc="); i != -1 {
		param.Description = strings.TrimSpace(tag[i+len("desc="):])
		tag = tag[:i]
	}

	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)

		switch {
		case part == "required":
			param.Required = true
		case strings.HasPrefix(part, "name="):
			param.Name = strings.TrimPrefix(part, "name=")
		case strings.HasPrefix(part, "default="):
			param.Default = strings.TrimPrefix(part, "default=")
		}
	}
}

func typeToString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.ArrayType:
		return "[]" + typeToString(t.Elt)
	case *ast.MapType:
		return "map[" + typeToString(t.Key) + "]" + typeToString(t.Value)
	case *ast.InterfaceType:
		return "any"
	case *ast.StarExpr:
		return "*" + typeToString(t.X)
	case *ast.SelectorExpr:
		return typeToString(t.X) + "." + t.Sel.Name
	default:
		return "any"
	}
}

func toSnakeCase(s string) string {
	acronyms := map[string]string{
		"URL":  "url",
		"HTTP": "http",
		"API":  "api",
		"ID":   "id",
		"JSON": "json",
		"JS":   "js",
	}

	result := s
	for acronym, replacement := range acronyms {
		result = strings.ReplaceAll(result, acronym, "_"+replacement+"_")
	}

	var sb strings.Builder
	for i, r := range result {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteRune('_')
			}
			sb.WriteRune(unicode.ToLower(r))
		} else {
			sb.WriteRune(r)
		}
	}

	output := sb.String()
	for strings.Contains(output, "__") {
		output = strings.ReplaceAll(output, "__", "_")
	}
	return strings.Trim(output, "_")
}

// renderRegistry produces the gofmt'ed source of the metadata file
func renderRegistry(pkg string, behaviors []BehaviorMetadata) ([]byte, error) {
	jsonData, err := json.MarshalIndent(behaviors, "", "  ")
	if err != nil {
		return nil, err
	}
	if bytes.ContainsRune(jsonData, '`') {
		return nil, fmt.Errorf("metadata must not contain backquotes")
	}

	code := fmt.Sprintf(`// Code generated by stepgen. DO NOT EDIT.

package %[3]s

import (
	"encoding/json"
)

// BehaviorMetadata describes one step type
type BehaviorMetadata struct {
	Name        string      %[1]sjson:"name"%[1]s
	Category    string      %[1]sjson:"category"%[1]s
	Description string      %[1]sjson:"description"%[1]s
	Params      []ParamMeta %[1]sjson:"params"%[1]s
}

// ParamMeta describes one step_config key
type ParamMeta struct {
	Name        string %[1]sjson:"name"%[1]s
	Type        string %[1]sjson:"type"%[1]s
	Required    bool   %[1]sjson:"required"%[1]s
	Default     string %[1]sjson:"default,omitempty"%[1]s
	Description string %[1]sjson:"description,omitempty"%[1]s
}

// behaviorsMetadataJSON contains the embedded JSON metadata
var behaviorsMetadataJSON = %[1]s%[2]s%[1]s

var behaviorsMetadata []BehaviorMetadata

func init() {
	if err := json.Unmarshal([]byte(behaviorsMetadataJSON), &behaviorsMetadata); err != nil {
		panic("stepgen: invalid behavior metadata: " + err.Error())
	}
}

// GetBehaviorsMetadata returns the metadata of all annotated behaviors
func GetBehaviorsMetadata() []BehaviorMetadata {
	return behaviorsMetadata
}

// GetBehaviorMetadata returns the metadata of a behavior by step type
func GetBehaviorMetadata(name string) (BehaviorMetadata, bool) {
	for _, b := range behaviorsMetadata {
		if b.Name == name {
			return b, true
		}
	}
	return BehaviorMetadata{}, false
}

// GetCategories returns all unique categories in declaration order
func GetCategories() []string {
	seen := make(map[string]bool)
	var categories []string
	for _, b := range behaviorsMetadata {
		if !seen[b.Category] {
			seen[b.Category] = true
			categories = append(categories, b.Category)
		}
	}
	return categories
}
`, "`", string(jsonData), pkg)

	return format.Source([]byte(code))
}
