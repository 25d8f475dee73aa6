package main

import (
	"github.com/spf13/cobra"

	"github.com/weiihann/nanobench/encode"
	"github.com/weiihann/nanobench/harness"
)

type payloadFlags struct {
	code, init, oneTimeInit encode.Payload
}

func (p *payloadFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()

	slots := []struct {
		name string
		dst  *encode.Payload
	}{
		{"code", &p.code},
		{"init", &p.init},
		{"one-time-init", &p.oneTimeInit},
	}

	for _, s := range slots {
		flags.StringVar(&s.dst.Source, s.name, "",
			"Assembly source for the "+s.name+" slot")
		flags.StringVar(&s.dst.Object, s.name+"-object", "",
			"Object file for the "+s.name+" slot")
		flags.StringVar(&s.dst.Binary, s.name+"-binary", "",
			"Raw binary for the "+s.name+" slot")
	}
}

func (p *payloadFlags) request() harness.Request {
	return harness.Request{
		Code:        p.code,
		Init:        p.init,
		OneTimeInit: p.oneTimeInit,
	}
}
