// Package suite decodes JSONL benchmark suites. Each line is one case with
// its payloads and the options to configure before running it:
//
//	{"name":"add","code":"add rax, rbx","options":{"unrollCount":100}}
package suite

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/weiihann/nanobench/encode"
	"github.com/weiihann/nanobench/harness"
	"github.com/weiihann/nanobench/params"
)

// Case is a single benchmark of a suite.
type Case struct {
	Name              string         `json:"name"`
	Code              string         `json:"code,omitempty"`
	CodeObject        string         `json:"code_object,omitempty"`
	CodeBinary        string         `json:"code_binary,omitempty"`
	Init              string         `json:"init,omitempty"`
	InitObject        string         `json:"init_object,omitempty"`
	InitBinary        string         `json:"init_binary,omitempty"`
	OneTimeInit       string         `json:"one_time_init,omitempty"`
	OneTimeInitObject string         `json:"one_time_init_object,omitempty"`
	OneTimeInitBinary string         `json:"one_time_init_binary,omitempty"`
	Options           map[string]any `json:"options,omitempty"`
}

// Load decodes every case in r. Unnamed cases are called case-<n>, counting
// from 1.
func Load(r io.Reader) ([]Case, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var cases []Case

	for {
		var c Case

		err := dec.Decode(&c)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("decode case %d: %w", len(cases)+1, err)
		}

		if c.Name == "" {
			c.Name = fmt.Sprintf("case-%d", len(cases)+1)
		}

		cases = append(cases, c)
	}

	return cases, nil
}

// Request returns the payloads of c.
func (c Case) Request() harness.Request {
	return harness.Request{
		Code:        encode.Payload{Source: c.Code, Object: c.CodeObject, Binary: c.CodeBinary},
		Init:        encode.Payload{Source: c.Init, Object: c.InitObject, Binary: c.InitBinary},
		OneTimeInit: encode.Payload{Source: c.OneTimeInit, Object: c.OneTimeInitObject, Binary: c.OneTimeInitBinary},
	}
}

// Settings converts the case options into settings. Option names are the
// harness option names (unrollCount, basicMode, ...).
func (c Case) Settings() ([]params.Setting, error) {
	names := make([]string, 0, len(c.Options))
	for name := range c.Options {
		names = append(names, name)
	}

	sort.Strings(names)

	settings := make([]params.Setting, 0, len(names))

	for _, name := range names {
		opt, err := params.Lookup(name)
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", c.Name, err)
		}

		v, err := convert(opt, c.Options[name])
		if err != nil {
			return nil, fmt.Errorf("case %s: option %s: %w", c.Name, name, err)
		}

		settings = append(settings, params.NewSetting(opt, v))
	}

	return settings, nil
}

func convert(opt params.Option, raw any) (params.Value, error) {
	switch opt.Kind() {
	case params.KindInt:
		n, ok := raw.(float64)
		if !ok || n != math.Trunc(n) {
			return params.Value{}, fmt.Errorf("want integer, got %v", raw)
		}

		return params.Int(int(n)), nil
	case params.KindBool:
		b, ok := raw.(bool)
		if !ok {
			return params.Value{}, fmt.Errorf("want bool, got %v", raw)
		}

		return params.Bool(b), nil
	case params.KindString:
		s, ok := raw.(string)
		if !ok {
			return params.Value{}, fmt.Errorf("want string, got %v", raw)
		}

		return params.String(s), nil
	case params.KindBlob:
		s, ok := raw.(string)
		if !ok {
			return params.Value{}, fmt.Errorf("want string, got %v", raw)
		}

		return params.Blob([]byte(s)), nil
	default:
		return params.Value{}, fmt.Errorf("unsupported kind %s", opt.Kind())
	}
}
