package types

import (
	"fmt"
	"strings"
)

// ParameterKind mirrors pyast.ParamKind but at the type level: a signature
// needs to know positional-only/keyword-only/star markers to check call
// compatibility, independent of any particular FunctionDef's AST shape.
type ParameterKind int

const (
	ParamPositionalOrKeyword ParameterKind = iota
	ParamPositionalOnly
	ParamKeywordOnly
	ParamArgs   // *args
	ParamKwargs // **kwargs
)

// Parameter is one entry in a Signature.
type Parameter struct {
	Name       string
	Annotated  Type
	Kind       ParameterKind
	HasDefault bool
	Qualifiers TypeQualifiers
}

// Signature is a callable's parameter list and return type. Functions with
// overloads (`@overload`) carry one Signature per overload; FunctionLiteral
// holds the list.
type Signature struct {
	Parameters []Parameter
	ReturnType Type
	// TypeParams are the function's own (PEP 695 or classic-generic)
	// typevars, scoped to this signature.
	TypeParams []TypeVarID
}

func (s Signature) String() string {
	parts := make([]string, len(s.Parameters))
	for i, p := range s.Parameters {
		prefix := ""
		switch p.Kind {
		case ParamArgs:
			prefix = "*"
		case ParamKwargs:
			prefix = "**"
		}
		ann := "Unknown"
		if p.Annotated != nil {
			ann = p.Annotated.String()
		}
		parts[i] = fmt.Sprintf("%s%s: %s", prefix, p.Name, ann)
	}
	ret := "Unknown"
	if s.ReturnType != nil {
		ret = s.ReturnType.String()
	}
	return fmt.Sprintf("(%s) -> %s", strings.Join(parts, ", "), ret)
}

// FunctionLiteral is the type of a specific function definition (one or
// more overload signatures sharing a qualified name).
type FunctionLiteral struct {
	QualName   string
	Signatures []Signature
	IsFinal    bool
	// IsOverride records the @override bookkeeping internal/override
	// consumes: whether this definition is itself marked @override.
	IsOverride bool
}

func (f FunctionLiteral) String() string { return fmt.Sprintf("def %s%s", f.QualName, f.Signatures[0]) }
func (FunctionLiteral) typ()             {}

func (f FunctionLiteral) Union(other Type) Type     { return unionOf(f, other) }
func (f FunctionLiteral) Intersect(other Type) Type { return intersectOf(f, other) }
func (f FunctionLiteral) SubtypeOf(other Type) bool {
	if o, ok := other.(FunctionLiteral); ok {
		return f.signatureCompatibleWith(o)
	}
	if o, ok := other.(Callable); ok {
		return f.signatureCompatibleWith(FunctionLiteral{Signatures: []Signature{o.Signature}})
	}
	return subtypeOf(f, other)
}

// signatureCompatibleWith checks the Liskov shape internal/override needs:
// each supertype parameter type must be assignable *to* the corresponding
// subtype parameter type (contravariant), and the subtype return type must
// be assignable *to* the supertype's (covariant).
func (f FunctionLiteral) signatureCompatibleWith(other FunctionLiteral) bool {
	if len(f.Signatures) == 0 || len(other.Signatures) == 0 {
		return false
	}
	sub, sup := f.Signatures[0], other.Signatures[0]
	if len(sub.Parameters) != len(sup.Parameters) {
		return false
	}
	for i := range sub.Parameters {
		subP, supP := sub.Parameters[i], sup.Parameters[i]
		if subP.Annotated == nil || supP.Annotated == nil {
			continue
		}
		if !supP.Annotated.SubtypeOf(subP.Annotated) && !IsDynamic(subP.Annotated) && !IsDynamic(supP.Annotated) {
			return false
		}
	}
	if sub.ReturnType == nil || sup.ReturnType == nil {
		return true
	}
	if IsDynamic(sub.ReturnType) || IsDynamic(sup.ReturnType) {
		return true
	}
	return sub.ReturnType.SubtypeOf(sup.ReturnType)
}

// BoundMethod is a FunctionLiteral bound to a receiver instance (`obj.method`
// with `self` already applied).
type BoundMethod struct {
	Receiver Type
	Function FunctionLiteral
}

func (b BoundMethod) String() string        { return fmt.Sprintf("bound method %s of %s", b.Function.QualName, b.Receiver) }
func (BoundMethod) typ()                    {}
func (b BoundMethod) Union(other Type) Type { return unionOf(b, other) }
func (b BoundMethod) Intersect(other Type) Type {
	return intersectOf(b, other)
}
func (b BoundMethod) SubtypeOf(other Type) bool {
	if o, ok := other.(BoundMethod); ok {
		return b.Function.SubtypeOf(o.Function)
	}
	return subtypeOf(b, other)
}

// Callable is the structural `Callable[[Params], Return]` type expression
// form — unlike FunctionLiteral, it names no particular definition.
type Callable struct{ Signature Signature }

func (c Callable) String() string            { return c.Signature.String() }
func (Callable) typ()                        {}
func (c Callable) Union(other Type) Type     { return unionOf(c, other) }
func (c Callable) Intersect(other Type) Type { return intersectOf(c, other) }
func (c Callable) SubtypeOf(other Type) bool {
	if o, ok := other.(Callable); ok {
		return FunctionLiteral{Signatures: []Signature{c.Signature}}.signatureCompatibleWith(
			FunctionLiteral{Signatures: []Signature{o.Signature}})
	}
	if o, ok := other.(FunctionLiteral); ok {
		return FunctionLiteral{Signatures: []Signature{c.Signature}}.SubtypeOf(o)
	}
	return subtypeOf(c, other)
}

// ModuleLiteral is the type of an imported module object.
type ModuleLiteral struct{ Path string }

func (m ModuleLiteral) String() string            { return fmt.Sprintf("<module %q>", m.Path) }
func (ModuleLiteral) typ()                        {}
func (m ModuleLiteral) Union(other Type) Type     { return unionOf(m, other) }
func (m ModuleLiteral) Intersect(other Type) Type { return intersectOf(m, other) }
func (m ModuleLiteral) SubtypeOf(other Type) bool {
	if o, ok := other.(ModuleLiteral); ok {
		return m.Path == o.Path
	}
	return subtypeOf(m, other)
}
