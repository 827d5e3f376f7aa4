package script

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kode4food/ale"
	"github.com/kode4food/ale/core/bootstrap"
	"github.com/kode4food/ale/data"
	"github.com/kode4food/ale/env"
	"github.com/kode4food/ale/eval"

	"github.com/hollowgrove/cascade/pkg/api"
	"github.com/hollowgrove/cascade/pkg/util"
)

type (
	// AleEnv compiles and runs Ale scripts. A script is wrapped in a lambda
	// over its argument names, so its compiled form is a data.Procedure
	AleEnv struct {
		env     *env.Environment
		scripts sync.Map
	}

	compiledAle struct {
		proc     data.Procedure
		argNames []string
	}
)

const aleLambdaTemplate = "(lambda (%s) %s)"

var (
	ErrAleBadCompiledType = errors.New("expected ale procedure")
	ErrAleNotProcedure    = errors.New("not a procedure")
	ErrAleCompile         = errors.New("script compile error")
	ErrAleCall            = errors.New("error calling procedure")
)

func NewAleEnv() *AleEnv {
	e := env.NewEnvironment()
	bootstrap.Into(e)
	return &AleEnv{
		env: e,
	}
}

func (e *AleEnv) Validate(script string, argNames []string) error {
	_, err := e.compile(script, argNames)
	return err
}

func (e *AleEnv) Compile(script string, argNames []string) (Compiled, error) {
	key := cacheKey(script, argNames)
	if val, ok := e.scripts.Load(key); ok {
		return val.(*compiledAle), nil
	}

	proc, err := e.compile(script, argNames)
	if err != nil {
		return nil, err
	}

	c := &compiledAle{proc: proc, argNames: argNames}
	e.scripts.Store(key, c)
	return c, nil
}

func (e *AleEnv) Execute(c Compiled, inputs api.Args) (api.Args, error) {
	compiled, ok := c.(*compiledAle)
	if !ok {
		return nil, fmt.Errorf("%s, got %T", ErrAleBadCompiledType, c)
	}

	args := make(data.Vector, 0, len(compiled.argNames))
	for _, name := range compiled.argNames {
		args = append(args, aleArgValue(inputs, name))
	}

	result, err := util.CatchPanic(ErrAleCall,
		func() (ale.Value, error) {
			return compiled.proc.Call(args...), nil
		},
	)
	if err != nil {
		return nil, err
	}
	return api.Normalize(aleToJSON(result)), nil
}

func (e *AleEnv) compile(
	script string, argNames []string,
) (data.Procedure, error) {
	src := fmt.Sprintf(
		aleLambdaTemplate, strings.Join(argNames, " "), script,
	)

	return util.CatchPanic(ErrAleCompile,
		func() (data.Procedure, error) {
			ns := e.env.GetAnonymous()
			res, err := eval.String(ns, data.String(src))
			if err != nil {
				return nil, err
			}

			proc, ok := res.(data.Procedure)
			if !ok {
				return nil, fmt.Errorf("%w, got: %T", ErrAleNotProcedure, res)
			}
			return proc, nil
		},
	)
}

func aleArgValue(inputs api.Args, argName string) ale.Value {
	value, ok := inputs[api.Name(argName)]
	if !ok {
		return data.Null
	}
	return jsonToAle(value)
}

func jsonToAle(value any) ale.Value {
	switch v := value.(type) {
	case string:
		return data.String(v)
	case bool:
		return data.Bool(v)
	case int:
		return data.Integer(v)
	case int64:
		return data.Integer(v)
	case float64:
		return data.Float(v)
	case []any:
		return jsonArrayToAle(v)
	case api.Args:
		return argsToAle(v)
	case map[string]any:
		return jsonMapToAle(v)
	case nil:
		return data.Null
	default:
		return data.String(fmt.Sprintf("%v", v))
	}
}

func jsonArrayToAle(arr []any) data.Vector {
	vec := make(data.Vector, len(arr))
	for i, item := range arr {
		vec[i] = jsonToAle(item)
	}
	return vec
}

func jsonMapToAle(m map[string]any) *data.Object {
	obj := data.NewObject()
	for k, val := range m {
		pair := data.NewCons(data.Keyword(k), jsonToAle(val))
		obj = obj.Put(pair).(*data.Object)
	}
	return obj
}

func argsToAle(args api.Args) *data.Object {
	obj := data.NewObject()
	for k, val := range args {
		pair := data.NewCons(data.Keyword(k), jsonToAle(val))
		obj = obj.Put(pair).(*data.Object)
	}
	return obj
}

func aleToJSON(value ale.Value) any {
	switch v := value.(type) {
	case data.Bool:
		return bool(v)
	case data.Keyword:
		return string(v)
	case data.Integer:
		return int(v)
	case data.Float:
		return float64(v)
	case data.Vector:
		return aleVectorToJSON(v)
	case *data.List:
		return aleListToJSON(v)
	case *data.Object:
		return aleObjectToJSON(v)
	default:
		return aleDefaultToJSON(value, v)
	}
}

func aleVectorToJSON(v data.Vector) []any {
	result := make([]any, len(v))
	for i, item := range v {
		result[i] = aleToJSON(item)
	}
	return result
}

func aleListToJSON(list *data.List) []any {
	var result []any
	for l := list; !l.IsEmpty(); {
		head, tail, ok := l.Split()
		if !ok {
			break
		}
		result = append(result, aleToJSON(head))
		l = tail.(*data.List)
	}
	return result
}

func aleObjectToJSON(obj *data.Object) map[string]any {
	result := map[string]any{}
	for _, pair := range obj.Pairs() {
		keyStr := fmt.Sprintf("%v", aleToJSON(pair.Car()))
		result[keyStr] = aleToJSON(pair.Cdr())
	}
	return result
}

func aleDefaultToJSON(value ale.Value, v any) any {
	if value == data.Null {
		return nil
	}
	return fmt.Sprintf("%v", v)
}
