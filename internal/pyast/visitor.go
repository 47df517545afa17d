package pyast

// Visitor is double-dispatch over every concrete node kind, covering
// Python's full statement/expression/pattern grammar.
type Visitor interface {
	VisitModule(*Module)
	VisitTypeParam(*TypeParam)

	VisitFunctionDef(*FunctionDef)
	VisitParam(*Param)
	VisitClassDef(*ClassDef)
	VisitKeyword(*Keyword)
	VisitReturn(*Return)
	VisitAssign(*Assign)
	VisitAnnAssign(*AnnAssign)
	VisitAugAssign(*AugAssign)
	VisitExprStmt(*ExprStmt)
	VisitPass(*Pass)
	VisitBreak(*Break)
	VisitContinue(*Continue)
	VisitDelete(*Delete)
	VisitGlobal(*Global)
	VisitNonlocal(*Nonlocal)
	VisitIf(*If)
	VisitWhile(*While)
	VisitFor(*For)
	VisitTry(*Try)
	VisitExceptHandler(*ExceptHandler)
	VisitWith(*With)
	VisitWithItem(*WithItem)
	VisitImportAlias(*ImportAlias)
	VisitImport(*Import)
	VisitImportFrom(*ImportFrom)
	VisitRaise(*Raise)
	VisitAssert(*Assert)
	VisitTypeAliasStmt(*TypeAliasStmt)
	VisitMatch(*Match)
	VisitMatchCase(*MatchCase)
	VisitPatternCapture(*PatternCapture)
	VisitPatternValue(*PatternValue)

	VisitName(*Name)
	VisitConstant(*Constant)
	VisitJoinedStr(*JoinedStr)
	VisitBinOp(*BinOp)
	VisitBoolOp(*BoolOp)
	VisitUnaryOp(*UnaryOp)
	VisitCompare(*Compare)
	VisitCall(*Call)
	VisitAttribute(*Attribute)
	VisitSubscript(*Subscript)
	VisitSlice(*Slice)
	VisitStarred(*Starred)
	VisitList(*List)
	VisitTuple(*TupleExpr)
	VisitSet(*SetExpr)
	VisitDict(*DictExpr)
	VisitListComp(*ListComp)
	VisitSetComp(*SetComp)
	VisitDictComp(*DictComp)
	VisitGeneratorExp(*GeneratorExp)
	VisitLambda(*Lambda)
	VisitIfExp(*IfExp)
	VisitNamedExpr(*NamedExpr)
	VisitYield(*Yield)
	VisitYieldFrom(*YieldFrom)
	VisitAwait(*Await)
}

// BaseVisitor implements Visitor with no-ops for every method so a concrete
// visitor can embed it and override only the handful of node kinds it cares
// about. The semindex and use-def builders and type inference do not use
// it; they switch on node types directly.
type BaseVisitor struct{}

func (BaseVisitor) VisitModule(*Module)           {}
func (BaseVisitor) VisitTypeParam(*TypeParam)     {}
func (BaseVisitor) VisitFunctionDef(*FunctionDef) {}
func (BaseVisitor) VisitParam(*Param)             {}
func (BaseVisitor) VisitClassDef(*ClassDef)       {}
func (BaseVisitor) VisitKeyword(*Keyword)         {}
func (BaseVisitor) VisitReturn(*Return)           {}
func (BaseVisitor) VisitAssign(*Assign)           {}
func (BaseVisitor) VisitAnnAssign(*AnnAssign)     {}
func (BaseVisitor) VisitAugAssign(*AugAssign)     {}
func (BaseVisitor) VisitExprStmt(*ExprStmt)       {}
func (BaseVisitor) VisitPass(*Pass)               {}
func (BaseVisitor) VisitBreak(*Break)             {}
func (BaseVisitor) VisitContinue(*Continue)       {}
func (BaseVisitor) VisitDelete(*Delete)           {}
func (BaseVisitor) VisitGlobal(*Global)           {}
func (BaseVisitor) VisitNonlocal(*Nonlocal)       {}
func (BaseVisitor) VisitIf(*If)                   {}
func (BaseVisitor) VisitWhile(*While)             {}
func (BaseVisitor) VisitFor(*For)                 {}
func (BaseVisitor) VisitTry(*Try)                 {}
func (BaseVisitor) VisitExceptHandler(*ExceptHandler) {}
func (BaseVisitor) VisitWith(*With)               {}
func (BaseVisitor) VisitWithItem(*WithItem)       {}
func (BaseVisitor) VisitImportAlias(*ImportAlias) {}
func (BaseVisitor) VisitImport(*Import)           {}
func (BaseVisitor) VisitImportFrom(*ImportFrom)   {}
func (BaseVisitor) VisitRaise(*Raise)             {}
func (BaseVisitor) VisitAssert(*Assert)           {}
func (BaseVisitor) VisitTypeAliasStmt(*TypeAliasStmt) {}
func (BaseVisitor) VisitMatch(*Match)             {}
func (BaseVisitor) VisitMatchCase(*MatchCase)     {}
func (BaseVisitor) VisitPatternCapture(*PatternCapture) {}
func (BaseVisitor) VisitPatternValue(*PatternValue)     {}
func (BaseVisitor) VisitName(*Name)               {}
func (BaseVisitor) VisitConstant(*Constant)       {}
func (BaseVisitor) VisitJoinedStr(*JoinedStr)     {}
func (BaseVisitor) VisitBinOp(*BinOp)             {}
func (BaseVisitor) VisitBoolOp(*BoolOp)           {}
func (BaseVisitor) VisitUnaryOp(*UnaryOp)         {}
func (BaseVisitor) VisitCompare(*Compare)         {}
func (BaseVisitor) VisitCall(*Call)               {}
func (BaseVisitor) VisitAttribute(*Attribute)     {}
func (BaseVisitor) VisitSubscript(*Subscript)     {}
func (BaseVisitor) VisitSlice(*Slice)             {}
func (BaseVisitor) VisitStarred(*Starred)         {}
func (BaseVisitor) VisitList(*List)               {}
func (BaseVisitor) VisitTuple(*TupleExpr)         {}
func (BaseVisitor) VisitSet(*SetExpr)             {}
func (BaseVisitor) VisitDict(*DictExpr)           {}
func (BaseVisitor) VisitListComp(*ListComp)       {}
func (BaseVisitor) VisitSetComp(*SetComp)         {}
func (BaseVisitor) VisitDictComp(*DictComp)       {}
func (BaseVisitor) VisitGeneratorExp(*GeneratorExp) {}
func (BaseVisitor) VisitLambda(*Lambda)           {}
func (BaseVisitor) VisitIfExp(*IfExp)             {}
func (BaseVisitor) VisitNamedExpr(*NamedExpr)     {}
func (BaseVisitor) VisitYield(*Yield)             {}
func (BaseVisitor) VisitYieldFrom(*YieldFrom)     {}
func (BaseVisitor) VisitAwait(*Await)             {}
