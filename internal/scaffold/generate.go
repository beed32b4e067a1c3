package scaffold

import (
	"bytes"
	"fmt"

	"github.com/dave/jennifer/jen"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-entity-repository/entity"
)

// DefaultModule is the import path of this module, used by generated code.
const DefaultModule = "github.com/goliatone/go-entity-repository"

const header = "Code generated by scaffold. DO NOT EDIT."

// Options controls code generation.
type Options struct {
	// Package is the package clause of the generated files.
	Package string
	// Module is the import path of the entity repository module.
	Module string
}

func (o Options) pkg(name string) string {
	module := o.Module
	if module == "" {
		module = DefaultModule
	}
	return module + "/" + name
}

// File is one rendered source file.
type File struct {
	Name   string
	Source []byte
}

// Generate renders the record, repository and service files for model.
func Generate(model *Model, opts Options) ([]File, error) {
	if opts.Package == "" {
		return nil, goerrors.New("package name is required", goerrors.CategoryBadInput).
			WithTextCode("MISSING_PACKAGE")
	}
	base := entity.SnakeCase(model.Name)
	gens := []struct {
		name   string
		render func(*Model, Options) *jen.File
	}{
		{base + ".go", genEntity},
		{base + "_repository.go", genRepository},
		{base + "_service.go", genService},
	}

	files := make([]File, 0, len(gens))
	for _, g := range gens {
		var buf bytes.Buffer
		if err := g.render(model, opts).Render(&buf); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, fmt.Sprintf("render %s", g.name))
		}
		files = append(files, File{Name: g.name, Source: buf.Bytes()})
	}
	return files, nil
}

func newFile(opts Options) *jen.File {
	f := jen.NewFile(opts.Package)
	f.HeaderComment(header)
	return f
}

func genEntity(model *Model, opts Options) *jen.File {
	f := newFile(opts)
	for i, s := range model.Structs {
		if i == 0 {
			f.Commentf("%s is a record stored in the %q index.", s.Name, model.Index)
		} else {
			f.Commentf("%s is embedded in %s.", s.Name, model.Name)
		}
		f.Type().Id(s.Name).StructFunc(func(g *jen.Group) {
			g.Qual(opts.pkg("entity"), "Base")
			for _, field := range s.Fields {
				g.Id(field.Name).Add(goType(field)).Tag(map[string]string{"json": field.Wire})
			}
		})
		f.Line()
	}

	f.Commentf("New%s returns an empty %s ready for Create.", model.Name, model.Name)
	f.Func().Id("New" + model.Name).Params().Op("*").Id(model.Name).Block(
		jen.Return(jen.Op("&").Id(model.Name).Values()),
	)
	return f
}

func goType(field Field) jen.Code {
	switch field.Kind {
	case KindString:
		return jen.String()
	case KindInt:
		return jen.Int64()
	case KindFloat:
		return jen.Float64()
	case KindBool:
		return jen.Bool()
	case KindTime:
		return jen.Qual("time", "Time")
	case KindObject:
		return jen.Op("*").Id(field.Struct)
	case KindNested:
		return jen.Index().Op("*").Id(field.Struct)
	default:
		return jen.Id("any")
	}
}

func genRepository(model *Model, opts Options) *jen.File {
	f := newFile(opts)
	repoPkg := opts.pkg("repository")
	name := model.Name + "Repository"

	f.Commentf("%s stores %s records.", name, model.Name)
	f.Type().Id(name).Op("=").Qual(repoPkg, "Repository").Types(jen.Op("*").Id(model.Name))

	f.Commentf("New%s returns a repository over the %q index.", name, model.Index)
	f.Func().Id("New"+name).Params(
		jen.Id("store").Qual(opts.pkg("query"), "Store"),
		jen.Id("opts").Op("...").Qual(repoPkg, "Option"),
	).Op("*").Id(name).Block(
		jen.Id("opts").Op("=").Append(
			jen.Index().Qual(repoPkg, "Option").Values(jen.Qual(repoPkg, "WithIndex").Call(jen.Lit(model.Index))),
			jen.Id("opts").Op("..."),
		),
		jen.Return(jen.Qual(repoPkg, "New").Types(jen.Op("*").Id(model.Name)).Call(
			jen.Id("store"),
			jen.Id("opts").Op("..."),
		)),
	)
	return f
}

func genService(model *Model, opts Options) *jen.File {
	f := newFile(opts)
	svcPkg := opts.pkg("service")
	name := model.Name + "Service"

	f.Commentf("%s is the cached service for %s records.", name, model.Name)
	f.Type().Id(name).Op("=").Qual(svcPkg, "Service").Types(jen.Op("*").Id(model.Name))

	f.Commentf("New%s wraps repo.", name)
	f.Func().Id("New"+name).Params(
		jen.Id("repo").Op("*").Id(model.Name+"Repository"),
		jen.Id("opts").Op("...").Qual(svcPkg, "Option"),
	).Op("*").Id(name).Block(
		jen.Return(jen.Qual(svcPkg, "New").Call(jen.Id("repo"), jen.Id("opts").Op("..."))),
	)
	return f
}
