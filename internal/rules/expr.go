package rules

import (
	"github.com/google/cel-go/cel"

	"dnsgate/internal/dnsmsg"
	pkgerrors "dnsgate/pkg/errors"
)

// ExprRule evaluates an operator-supplied CEL expression over the query
// view. The expression is compiled once at construction; evaluation on the
// hot path reuses the compiled program and yields false on any runtime
// error.
type ExprRule struct {
	expression string
	program    cel.Program
}

func newExprEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("qname", cel.StringType),
		cel.Variable("qtype", cel.IntType),
		cel.Variable("qclass", cel.IntType),
		cel.Variable("rcode", cel.IntType),
		cel.Variable("opcode", cel.IntType),
		cel.Variable("labels", cel.IntType),
		cel.Variable("remote", cel.StringType),
		cel.Variable("tcp", cel.BoolType),
		cel.Variable("proto", cel.StringType),
	)
}

func NewExprRule(expression string) (*ExprRule, error) {
	env, err := newExprEnv()
	if err != nil {
		return nil, pkgerrors.ErrInternal.WithCause(err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, pkgerrors.ErrValidation.
			WithCause(issues.Err()).
			WithMessage("expression does not compile: %v", issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, pkgerrors.ErrValidation.
			WithMessage("expression must return bool, got %v", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, pkgerrors.ErrInternal.WithCause(err)
	}

	return &ExprRule{expression: expression, program: program}, nil
}

func (r *ExprRule) Matches(q *dnsmsg.Query) bool {
	vars := map[string]interface{}{
		"qname":  q.QName,
		"qtype":  int64(q.QType),
		"qclass": int64(q.QClass),
		"rcode":  int64(q.RCode()),
		"opcode": int64(msgOpcode(q)),
		"labels": int64(q.QNameLabels()),
		"remote": q.RemoteAddr().String(),
		"tcp":    q.TCP,
		"proto":  string(q.Proto),
	}

	result, _, err := r.program.Eval(vars)
	if err != nil {
		return false
	}

	matched, ok := result.Value().(bool)
	return ok && matched
}

func (r *ExprRule) String() string {
	return "expr: " + r.expression
}

func msgOpcode(q *dnsmsg.Query) int {
	if q.Msg == nil {
		return 0
	}
	return q.Msg.Opcode
}
