package extract

import (
	"strings"

	"github.com/joseph-ayodele/policy-structurer/internal/llm"
)

// promoteFunc copies family-specific fields from the model response into the
// result's details, normalising their types. It must not depend on any other
// coverage's result.
type promoteFunc func(resp, details map[string]any)

// lookup finds key at the top level of the response or under "details".
func lookup(resp map[string]any, key string) (any, bool) {
	if v, ok := resp[key]; ok && v != nil {
		return v, true
	}
	if d := llm.Object(resp["details"]); d != nil {
		if v, ok := d[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func promoteMoney(keys ...string) promoteFunc {
	return func(resp, details map[string]any) {
		for _, k := range keys {
			if v, ok := lookup(resp, k); ok {
				if f := llm.Float(v); f != nil {
					details[k] = *f
				}
			}
		}
	}
}

func promoteStrings(keys ...string) promoteFunc {
	return func(resp, details map[string]any) {
		for _, k := range keys {
			v, ok := lookup(resp, k)
			if !ok {
				continue
			}
			if list := llm.Strings(v); len(list) > 0 {
				details[k] = list
			} else if s := llm.String(v); s != nil {
				details[k] = []string{*s}
			}
		}
	}
}

func promoteText(keys ...string) promoteFunc {
	return func(resp, details map[string]any) {
		for _, k := range keys {
			if v, ok := lookup(resp, k); ok {
				if s := llm.String(v); s != nil {
					details[k] = *s
				}
			}
		}
	}
}

func promoteBools(keys ...string) promoteFunc {
	return func(resp, details map[string]any) {
		for _, k := range keys {
			if v, ok := lookup(resp, k); ok {
				if b := llm.Bool(v); b != nil {
					details[k] = *b
				}
			}
		}
	}
}

func promoteDates(keys ...string) promoteFunc {
	return func(resp, details map[string]any) {
		for _, k := range keys {
			if v, ok := lookup(resp, k); ok {
				if d := llm.Date(v); d != nil {
					details[k] = d.Format("2006-01-02")
				}
			}
		}
	}
}

// promoteList keeps an array verbatim, dropping null members.
func promoteList(keys ...string) promoteFunc {
	return func(resp, details map[string]any) {
		for _, k := range keys {
			v, ok := lookup(resp, k)
			if !ok {
				continue
			}
			arr, isArr := v.([]any)
			if !isArr {
				continue
			}
			kept := make([]any, 0, len(arr))
			for _, item := range arr {
				if item != nil {
					kept = append(kept, item)
				}
			}
			details[k] = kept
		}
	}
}

// promoteLimits normalises an object of money values, e.g. employers
// liability limits, keeping only members that read as numbers.
func promoteLimits(keys ...string) promoteFunc {
	return func(resp, details map[string]any) {
		for _, k := range keys {
			v, ok := lookup(resp, k)
			if !ok {
				continue
			}
			obj := llm.Object(v)
			if obj == nil {
				continue
			}
			limits := map[string]any{}
			for name, raw := range obj {
				if f := llm.Float(raw); f != nil {
					limits[name] = *f
				}
			}
			if len(limits) > 0 {
				details[k] = limits
			}
		}
	}
}

// promoteRetainedLimits gathers per-line retained limits from either a
// "retained_limits" object or flat "retained_limit_<line>" keys.
func promoteRetainedLimits(resp, details map[string]any) {
	limits := map[string]any{}
	if v, ok := lookup(resp, "retained_limits"); ok {
		for line, raw := range llm.Object(v) {
			if f := llm.Float(raw); f != nil {
				limits[line] = *f
			}
		}
	}
	collect := func(m map[string]any) {
		for k, raw := range m {
			line, ok := strings.CutPrefix(k, "retained_limit_")
			if !ok || line == "" {
				continue
			}
			if f := llm.Float(raw); f != nil {
				limits[line] = *f
			}
		}
	}
	collect(resp)
	collect(llm.Object(resp["details"]))
	if len(limits) > 0 {
		details["retained_limits"] = limits
	}
}

func chain(fns ...promoteFunc) promoteFunc {
	return func(resp, details map[string]any) {
		for _, fn := range fns {
			fn(resp, details)
		}
	}
}
