package gen

import (
	"github.com/dave/jennifer/jen"

	"github.com/nvt2106/magicstore/schema"
)

// genEntity renders the wrapper file of t.
func genEntity(pkg, header string, t *Type) *jen.File {
	f := jen.NewFile(pkg)
	f.HeaderComment(header)
	genConsts(f, t)
	genStruct(f, t)
	genConstructors(f, t)
	for _, fd := range t.Fields {
		switch {
		case fd.IsSingularRelation():
			genRelated(f, t, fd)
		case fd.IsCollection():
			genCollection(f, t, fd)
		default:
			genValue(f, t, fd)
		}
	}
	return f
}

func genConsts(f *jen.File, t *Type) {
	f.Const().DefsFunc(func(g *jen.Group) {
		g.Commentf("%s is the name of the %s schema.", t.SchemaConst(), t.Name)
		g.Id(t.SchemaConst()).Op("=").Lit(t.Name)
		for _, fd := range t.Fields {
			name := fd.Name
			if fd.IsSingularRelation() {
				name = schema.RelationIDField(fd.Name)
			}
			g.Id(t.FieldConst(fd.Name)).Op("=").Lit(name)
		}
	})
}

func genStruct(f *jen.File, t *Type) {
	f.Commentf("%s wraps a proxy of the %s schema.", t.Name, t.Name)
	f.Type().Id(t.Name).Struct(
		jen.Op("*").Qual(proxyPkg, "Entity"),
	)
}

func (t *Type) recv() *jen.Statement {
	return jen.Id(t.Receiver()).Op("*").Id(t.Name)
}

func (t *Type) proxy() *jen.Statement {
	return jen.Id(t.Receiver()).Dot("Entity")
}

func ecParam() *jen.Statement {
	return jen.Id("ec").Op("*").Qual(contextPkg, "EntityContext")
}

func ctxParam() *jen.Statement {
	return jen.Id("ctx").Qual("context", "Context")
}

func genConstructors(f *jen.File, t *Type) {
	f.Commentf("New%s creates a %s in ec.", t.Name, t.Name)
	f.Func().Id("New"+t.Name).Params(ecParam()).Params(jen.Op("*").Id(t.Name), jen.Error()).Block(
		jen.List(jen.Id("e"), jen.Err()).Op(":=").Id("ec").Dot("Create").Call(jen.Id(t.SchemaConst())),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
		jen.Return(jen.Op("&").Id(t.Name).Values(jen.Id("e")), jen.Nil()),
	)

	f.Commentf("As%s wraps e, which must be a proxy of the %s schema.", t.Name, t.Name)
	f.Func().Id("As"+t.Name).Params(jen.Id("e").Op("*").Qual(proxyPkg, "Entity")).Params(jen.Op("*").Id(t.Name), jen.Error()).Block(
		jen.If(jen.Id("e").Op("==").Nil()).Block(jen.Return(jen.Nil(), jen.Nil())),
		jen.If(jen.Id("e").Dot("Name").Call().Op("!=").Id(t.SchemaConst())).Block(
			jen.Return(jen.Nil(), jen.Qual("fmt", "Errorf").Call(
				jen.Lit("%w: %s is not a "+t.Name),
				jen.Qual(contextPkg, "ErrUnmanagedType"),
				jen.Id("e"),
			)),
		),
		jen.Return(jen.Op("&").Id(t.Name).Values(jen.Id("e")), jen.Nil()),
	)

	f.Commentf("Get%s returns the %s with the given id, or nil.", t.Name, t.Name)
	f.Func().Id("Get"+t.Name).Params(ctxParam(), ecParam(), jen.Id("id").Qual(uuidPkg, "UUID")).Params(jen.Op("*").Id(t.Name), jen.Error()).Block(
		jen.List(jen.Id("e"), jen.Err()).Op(":=").Id("ec").Dot("Get").Call(jen.Id("ctx"), jen.Id(t.SchemaConst()), jen.Id("id")),
		jen.If(jen.Err().Op("!=").Nil().Op("||").Id("e").Op("==").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
		jen.Return(jen.Op("&").Id(t.Name).Values(jen.Id("e")), jen.Nil()),
	)

	f.Commentf("Search%s returns the %s entities matching cs.", t.Plural(), t.Name)
	f.Func().Id("Search"+t.Plural()).Params(
		ctxParam(), ecParam(),
		jen.Id("cs").Op("*").Qual(conditionPkg, "Conditions"),
		jen.Id("page").Op("*").Qual(conditionPkg, "PageSetting"),
	).Params(jen.Index().Op("*").Id(t.Name), jen.Error()).Block(
		jen.List(jen.Id("items"), jen.Err()).Op(":=").Id("ec").Dot("Search").Call(jen.Id("ctx"), jen.Id(t.SchemaConst()), jen.Id("cs"), jen.Id("page")),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
		jen.Return(jen.Id("wrap"+t.Plural()).Call(jen.Id("items")), jen.Nil()),
	)

	f.Func().Id("wrap"+t.Plural()).Params(jen.Id("items").Index().Op("*").Qual(proxyPkg, "Entity")).Index().Op("*").Id(t.Name).Block(
		jen.If(jen.Id("items").Op("==").Nil()).Block(jen.Return(jen.Nil())),
		jen.Id("out").Op(":=").Make(jen.Index().Op("*").Id(t.Name), jen.Len(jen.Id("items"))),
		jen.For(jen.List(jen.Id("i"), jen.Id("e")).Op(":=").Range().Id("items")).Block(
			jen.Id("out").Index(jen.Id("i")).Op("=").Op("&").Id(t.Name).Values(jen.Id("e")),
		),
		jen.Return(jen.Id("out")),
	)
}

// genValue renders the getter and setter of a value field.
func genValue(f *jen.File, t *Type, fd *schema.Field) {
	typ := goType(fd.Type)
	if fd.Nullable {
		f.Commentf("%s returns the %s value, or nil.", fd.Name, fd.Name)
		f.Func().Params(t.recv()).Id(fd.Name).Params().Op("*").Add(goType(fd.Type)).Block(
			jen.List(jen.Id("v"), jen.Id("_")).Op(":=").Add(t.proxy()).Dot("Value").Call(jen.Id(t.FieldConst(fd.Name))),
			jen.If(jen.List(jen.Id("x"), jen.Id("ok")).Op(":=").Id("v").Assert(typ), jen.Id("ok")).Block(
				jen.Return(jen.Op("&").Id("x")),
			),
			jen.Return(jen.Nil()),
		)
		f.Commentf("Set%s sets the %s value. A nil value clears it.", fd.Name, fd.Name)
		f.Func().Params(t.recv()).Id("Set"+fd.Name).Params(jen.Id("value").Op("*").Add(goType(fd.Type))).Error().Block(
			jen.Return(t.proxy().Dot("Set").Call(jen.Id(t.FieldConst(fd.Name)), jen.Id("value"))),
		)
		return
	}
	f.Commentf("%s returns the %s value.", fd.Name, fd.Name)
	f.Func().Params(t.recv()).Id(fd.Name).Params().Add(typ).Block(
		jen.List(jen.Id("v"), jen.Id("_")).Op(":=").Add(t.proxy()).Dot("Value").Call(jen.Id(t.FieldConst(fd.Name))),
		jen.List(jen.Id("x"), jen.Id("_")).Op(":=").Id("v").Assert(goType(fd.Type)),
		jen.Return(jen.Id("x")),
	)
	f.Commentf("Set%s sets the %s value.", fd.Name, fd.Name)
	f.Func().Params(t.recv()).Id("Set"+fd.Name).Params(jen.Id("value").Add(goType(fd.Type))).Error().Block(
		jen.Return(t.proxy().Dot("Set").Call(jen.Id(t.FieldConst(fd.Name)), jen.Id("value"))),
	)
}

// genRelated renders the accessors of a singular relation.
func genRelated(f *jen.File, t *Type, fd *schema.Field) {
	f.Commentf("%s loads the related %s, or returns nil.", fd.Name, fd.Target)
	f.Func().Params(t.recv()).Id(fd.Name).Params(ctxParam()).Params(jen.Op("*").Id(fd.Target), jen.Error()).Block(
		jen.List(jen.Id("e"), jen.Err()).Op(":=").Add(t.proxy()).Dot("Related").Call(jen.Id("ctx"), jen.Lit(fd.Name)),
		jen.If(jen.Err().Op("!=").Nil().Op("||").Id("e").Op("==").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
		jen.Return(jen.Op("&").Id(fd.Target).Values(jen.Id("e")), jen.Nil()),
	)
	f.Commentf("%sID returns the id of the related %s without loading it.", fd.Name, fd.Target)
	f.Func().Params(t.recv()).Id(fd.Name+"ID").Params().Qual(uuidPkg, "UUID").Block(
		jen.List(jen.Id("v"), jen.Id("_")).Op(":=").Add(t.proxy()).Dot("Value").Call(jen.Id(t.FieldConst(fd.Name))),
		jen.List(jen.Id("id"), jen.Id("_")).Op(":=").Id("v").Assert(jen.Qual(uuidPkg, "UUID")),
		jen.Return(jen.Id("id")),
	)
	f.Commentf("Set%s sets the related %s. A nil value clears it.", fd.Name, fd.Target)
	f.Func().Params(t.recv()).Id("Set"+fd.Name).Params(jen.Id("value").Op("*").Id(fd.Target)).Error().Block(
		jen.If(jen.Id("value").Op("==").Nil()).Block(
			jen.Return(t.proxy().Dot("SetRelated").Call(jen.Lit(fd.Name), jen.Nil())),
		),
		jen.Return(t.proxy().Dot("SetRelated").Call(jen.Lit(fd.Name), jen.Id("value").Dot("Entity"))),
	)
}

// genCollection renders the accessors of a collection relation.
func genCollection(f *jen.File, t *Type, fd *schema.Field) {
	target := &Type{Entity: &schema.Entity{Name: fd.Target}}
	f.Commentf("%s loads the %s collection.", fd.Name, fd.Target)
	f.Func().Params(t.recv()).Id(fd.Name).Params(ctxParam()).Params(jen.Index().Op("*").Id(fd.Target), jen.Error()).Block(
		jen.List(jen.Id("items"), jen.Err()).Op(":=").Add(t.proxy()).Dot("Collection").Call(jen.Id("ctx"), jen.Lit(fd.Name)),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
		jen.Return(jen.Id("wrap"+target.Plural()).Call(jen.Id("items")), jen.Nil()),
	)
	f.Commentf("Set%s replaces the %s collection.", fd.Name, fd.Target)
	f.Func().Params(t.recv()).Id("Set"+fd.Name).Params(jen.Id("items").Op("...").Op("*").Id(fd.Target)).Error().Block(
		jen.Id("es").Op(":=").Make(jen.Index().Op("*").Qual(proxyPkg, "Entity"), jen.Len(jen.Id("items"))),
		jen.For(jen.List(jen.Id("i"), jen.Id("item")).Op(":=").Range().Id("items")).Block(
			jen.If(jen.Id("item").Op("!=").Nil()).Block(
				jen.Id("es").Index(jen.Id("i")).Op("=").Id("item").Dot("Entity"),
			),
		),
		jen.Return(t.proxy().Dot("SetCollection").Call(jen.Lit(fd.Name), jen.Id("es"))),
	)
	f.Commentf("Preload%s%s loads the %s of several %s entities at once.", t.Name, fd.Name, fd.Name, t.Name)
	f.Func().Id("Preload"+t.Name+fd.Name).Params(ctxParam(), ecParam(), jen.Id("owners").Op("...").Op("*").Id(t.Name)).Error().Block(
		jen.Id("es").Op(":=").Make(jen.Index().Op("*").Qual(proxyPkg, "Entity"), jen.Len(jen.Id("owners"))),
		jen.For(jen.List(jen.Id("i"), jen.Id("o")).Op(":=").Range().Id("owners")).Block(
			jen.If(jen.Id("o").Op("!=").Nil()).Block(
				jen.Id("es").Index(jen.Id("i")).Op("=").Id("o").Dot("Entity"),
			),
		),
		jen.Return(jen.Id("ec").Dot("Preload").Call(jen.Id("ctx"), jen.Id("es"), jen.Lit(fd.Name))),
	)
}
