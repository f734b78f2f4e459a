package directive

import (
	htmltemplate "html/template"
	"strconv"
	"text/template"

	"github.com/nuages/nuages/pkg/cloud"
)

// FuncMap returns the tag cloud functions for text/template:
//
//	{{ computeTagCloud .tags "interest" "font_size" 10 100 "log" }}
//	{{ $c := tagCloud .tags "name" "interest" 10 100 "lin" }}
//
// computeTagCloud writes sizes into the items and renders nothing. tagCloud
// leaves the items alone and returns a cloud.Cloud in input order.
func FuncMap() template.FuncMap {
	return template.FuncMap(funcs())
}

// HTMLFuncMap returns the same functions for html/template.
func HTMLFuncMap() htmltemplate.FuncMap {
	return htmltemplate.FuncMap(funcs())
}

func funcs() map[string]any {
	return map[string]any{
		"computeTagCloud": computeTagCloud,
		"tagCloud":        tagCloud,
	}
}

func computeTagCloud(data any, weightProp, sizeProp string, minSize, maxSize any, mode string) (string, error) {
	o, err := options(minSize, maxSize, mode)
	if err != nil {
		return "", err
	}
	if err := cloud.Annotate(data, weightProp, sizeProp, o, nil); err != nil {
		return "", err
	}
	return "", nil
}

func tagCloud(data any, labelProp, weightProp string, minSize, maxSize any, mode string) (cloud.Cloud, error) {
	o, err := options(minSize, maxSize, mode)
	if err != nil {
		return nil, err
	}
	c, err := cloud.FromItems(data, labelProp, weightProp, nil)
	if err != nil {
		return nil, err
	}
	if err := c.Compute(o); err != nil {
		return nil, err
	}
	return c, nil
}

func options(minSize, maxSize any, mode string) (cloud.Options, error) {
	lo, err := number(minSize)
	if err != nil {
		return cloud.Options{}, &SyntaxError{Directive: Name, Msg: "min_size: " + err.Error()}
	}
	hi, err := number(maxSize)
	if err != nil {
		return cloud.Options{}, &SyntaxError{Directive: Name, Msg: "max_size: " + err.Error()}
	}
	m, err := cloud.ParseMode(mode)
	if err != nil {
		return cloud.Options{}, err
	}
	o := cloud.Options{MinSize: lo, MaxSize: hi, Mode: m}
	return o, o.Validate()
}

func number(v any) (float64, error) {
	if s, ok := v.(string); ok {
		return strconv.ParseFloat(s, 64)
	}
	return cloud.ReflectAccessor{}.Get(map[string]any{"v": v}, "v")
}
