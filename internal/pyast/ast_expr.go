package pyast

// ExprContext records whether a Name/Attribute/Subscript is being read,
// stored into, or deleted — the load/store/del distinction §4.4 uses to
// decide USED vs DEFINED.
type ExprContext int

const (
	CtxLoad ExprContext = iota
	CtxStore
	CtxDel
)

// Name is a bare identifier reference.
type Name struct {
	base
	Id  string
	Ctx ExprContext
}

func (n *Name) exprNode()        {}
func (n *Name) Accept(v Visitor) { v.VisitName(n) }

// ConstantKind distinguishes literal payload shapes.
type ConstantKind int

const (
	ConstInt ConstantKind = iota
	ConstFloat
	ConstString
	ConstBytes
	ConstBool
	ConstNone
	ConstEllipsis
)

// Constant is any atomic literal.
type Constant struct {
	base
	Kind  ConstantKind
	Value interface{} // int64, float64, string, []byte, bool, nil
}

func (c *Constant) exprNode()        {}
func (c *Constant) Accept(v Visitor) { v.VisitConstant(c) }

// JoinedStr is an f-string: a sequence of literal and {expr!conv:spec}
// parts. FormattedValues hold only the embedded expressions, since the
// core does not need to re-render the literal text.
type JoinedStr struct {
	base
	FormattedValues []Expr
}

func (j *JoinedStr) exprNode()        {}
func (j *JoinedStr) Accept(v Visitor) { v.VisitJoinedStr(j) }

// BinOp is `left OP right`.
type BinOp struct {
	base
	Left  Expr
	Op    string
	Right Expr
}

func (b *BinOp) exprNode()        {}
func (b *BinOp) Accept(v Visitor) { v.VisitBinOp(b) }

// BoolOp is `a and b and c` / `a or b or c`.
type BoolOp struct {
	base
	Op     string // "and" | "or"
	Values []Expr
}

func (b *BoolOp) exprNode()        {}
func (b *BoolOp) Accept(v Visitor) { v.VisitBoolOp(b) }

// UnaryOp is `-x`, `+x`, `~x`, `not x`.
type UnaryOp struct {
	base
	Op      string
	Operand Expr
}

func (u *UnaryOp) exprNode()        {}
func (u *UnaryOp) Accept(v Visitor) { v.VisitUnaryOp(u) }

// Compare is a chained comparison `a < b <= c`.
type Compare struct {
	base
	Left        Expr
	Ops         []string
	Comparators []Expr
}

func (c *Compare) exprNode()        {}
func (c *Compare) Accept(v Visitor) { v.VisitCompare(c) }

// Call is `func(args, keywords)`.
type Call struct {
	base
	Func     Expr
	Args     []Expr
	Keywords []*Keyword
}

func (c *Call) exprNode()        {}
func (c *Call) Accept(v Visitor) { v.VisitCall(c) }

// Attribute is `value.attr`.
type Attribute struct {
	base
	Value Expr
	Attr  string
	Ctx   ExprContext
}

func (a *Attribute) exprNode()        {}
func (a *Attribute) Accept(v Visitor) { v.VisitAttribute(a) }

// Subscript is `value[slice]`.
type Subscript struct {
	base
	Value Expr
	Slice Expr
	Ctx   ExprContext
}

func (s *Subscript) exprNode()        {}
func (s *Subscript) Accept(v Visitor) { v.VisitSubscript(s) }

// Slice is `lower:upper:step` inside a Subscript.
type Slice struct {
	base
	Lower Expr // optional
	Upper Expr // optional
	Step  Expr // optional
}

func (s *Slice) exprNode()        {}
func (s *Slice) Accept(v Visitor) { v.VisitSlice(s) }

// Starred is `*expr` used in assignment targets and call arguments.
type Starred struct {
	base
	Value Expr
	Ctx   ExprContext
}

func (s *Starred) exprNode()        {}
func (s *Starred) Accept(v Visitor) { v.VisitStarred(s) }

// List / Tuple / Set are homogeneous containers sharing a Ctx because all
// three can appear on the left of an assignment as a destructuring target.
type List struct {
	base
	Elts []Expr
	Ctx  ExprContext
}

func (l *List) exprNode()        {}
func (l *List) Accept(v Visitor) { v.VisitList(l) }

type TupleExpr struct {
	base
	Elts []Expr
	Ctx  ExprContext
}

func (t *TupleExpr) exprNode()        {}
func (t *TupleExpr) Accept(v Visitor) { v.VisitTuple(t) }

type SetExpr struct {
	base
	Elts []Expr
}

func (s *SetExpr) exprNode()        {}
func (s *SetExpr) Accept(v Visitor) { v.VisitSet(s) }

// DictExpr is `{key: value, **rest}`; a nil Keys[i] denotes a `**rest`
// unpacking entry, paired with a non-nil Values[i].
type DictExpr struct {
	base
	Keys   []Expr
	Values []Expr
}

func (d *DictExpr) exprNode()        {}
func (d *DictExpr) Accept(v Visitor) { v.VisitDict(d) }

// Comprehension is one `for target in iter if conds` clause shared by all
// four comprehension expression forms.
type Comprehension struct {
	Target  Expr
	Iter    Expr
	Ifs     []Expr
	IsAsync bool
}

// ListComp / SetComp / DictComp / GeneratorExp each introduce their own
// scope (§4.4 "Lambda, comprehensions: push their own scopes").
type ListComp struct {
	base
	Elt   Expr
	Gens  []*Comprehension
}

func (l *ListComp) exprNode()        {}
func (l *ListComp) Accept(v Visitor) { v.VisitListComp(l) }

type SetComp struct {
	base
	Elt  Expr
	Gens []*Comprehension
}

func (s *SetComp) exprNode()        {}
func (s *SetComp) Accept(v Visitor) { v.VisitSetComp(s) }

type DictComp struct {
	base
	Key   Expr
	Value Expr
	Gens  []*Comprehension
}

func (d *DictComp) exprNode()        {}
func (d *DictComp) Accept(v Visitor) { v.VisitDictComp(d) }

type GeneratorExp struct {
	base
	Elt  Expr
	Gens []*Comprehension
}

func (g *GeneratorExp) exprNode()        {}
func (g *GeneratorExp) Accept(v Visitor) { v.VisitGeneratorExp(g) }

// Lambda is `lambda params: body`. It introduces its own scope.
type Lambda struct {
	base
	Params []*Param
	Body   Expr
}

func (l *Lambda) exprNode()        {}
func (l *Lambda) Accept(v Visitor) { v.VisitLambda(l) }

// IfExp is the ternary `body if test else orelse`.
type IfExp struct {
	base
	Test   Expr
	Body   Expr
	Orelse Expr
}

func (i *IfExp) exprNode()        {}
func (i *IfExp) Accept(v Visitor) { v.VisitIfExp(i) }

// NamedExpr is the walrus `target := value`.
type NamedExpr struct {
	base
	Target *Name
	Value  Expr
}

func (n *NamedExpr) exprNode()        {}
func (n *NamedExpr) Accept(v Visitor) { v.VisitNamedExpr(n) }

// Yield / YieldFrom / Await model generator- and coroutine-flavored
// expressions; the core never executes them, it only needs them as nodes
// whose sub-expressions get indexed and type-inferred.
type Yield struct {
	base
	Value Expr // optional
}

func (y *Yield) exprNode()        {}
func (y *Yield) Accept(v Visitor) { v.VisitYield(y) }

type YieldFrom struct {
	base
	Value Expr
}

func (y *YieldFrom) exprNode()        {}
func (y *YieldFrom) Accept(v Visitor) { v.VisitYieldFrom(y) }

type Await struct {
	base
	Value Expr
}

func (a *Await) exprNode()        {}
func (a *Await) Accept(v Visitor) { v.VisitAwait(a) }
