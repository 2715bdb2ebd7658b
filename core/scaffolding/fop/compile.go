package fop

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Compile turns raw querystring parameters into a QueryDescriptor. It never
// fails: operands stay textual and field names are not checked here, the
// fetch stage validates both against the collection schema.
//
//	?averageCost[lte]=10000&careers[in]=Business,UI/UX&select=name&sort=-averageCost&page=2&limit=5
func Compile(params url.Values) QueryDescriptor {
	d := QueryDescriptor{
		Filter: Filter{},
	}

	for key, values := range params {
		if IsReserved(key) {
			continue
		}
		field, op := splitOperator(key)
		d.Filter.add(field, op, values)
	}
	for field := range d.Filter {
		slices.SortFunc(d.Filter[field], func(a, b Comparison) int {
			return operatorRank[a.Op] - operatorRank[b.Op]
		})
	}

	d.Projection = parseList(params[KeySelect])
	d.SortKeys = parseSort(params[KeySort])
	d.Page = parsePositive(params.Get(KeyPage), DefaultPage)
	d.Limit = parsePositive(params.Get(KeyLimit), DefaultLimit)
	d.Limit = min(d.Limit, MaxOffset)
	d.Page = min(d.Page, MaxOffset/d.Limit+1)
	d.Window = Window{
		Offset: (d.Page - 1) * d.Limit,
		Limit:  d.Limit,
	}

	return d
}

// Values encodes d back into querystring parameters. Compiling the result
// yields an equivalent descriptor; relations are route configuration and are
// not encoded.
func (d QueryDescriptor) Values() url.Values {
	v := url.Values{}

	for field, comparisons := range d.Filter {
		for _, c := range comparisons {
			switch c.Op {
			case OpEquals:
				for _, operand := range c.Operand {
					v.Add(field, operand)
				}
			case OpIn:
				v.Set(field+"["+string(c.Op)+"]", strings.Join(c.Operand, ","))
			default:
				v.Set(field+"["+string(c.Op)+"]", first(c.Operand))
			}
		}
	}

	if len(d.Projection) > 0 {
		v.Set(KeySelect, strings.Join(d.Projection, ","))
	}

	keys := make([]string, len(d.SortKeys))
	for i, k := range d.SortKeys {
		if k.Direction == Descending {
			keys[i] = "-" + k.Field
			continue
		}
		keys[i] = k.Field
	}
	v.Set(KeySort, strings.Join(keys, ","))
	v.Set(KeyPage, strconv.Itoa(d.Page))
	v.Set(KeyLimit, strconv.Itoa(d.Limit))

	return v
}

func (f Filter) add(field string, op Operator, values []string) {
	var operand []string
	switch op {
	case OpEquals:
		if len(values) == 0 {
			return
		}
		operand = append(operand, values...)
	case OpIn:
		operand = parseList(values)
		if operand == nil {
			operand = []string{}
		}
	default:
		// repeated range operands: the last one wins
		last := ""
		if len(values) > 0 {
			last = values[len(values)-1]
		}
		operand = []string{last}
	}

	for i, c := range f[field] {
		if c.Op == op {
			if op == OpEquals || op == OpIn {
				f[field][i].Operand = append(f[field][i].Operand, operand...)
			} else {
				f[field][i].Operand = operand
			}
			return
		}
	}
	f[field] = append(f[field], Comparison{Op: op, Operand: operand})
}

// splitOperator splits "price[gte]" into ("price", gte). Keys without a
// recognised suffix are equality filters on the verbatim key.
func splitOperator(key string) (string, Operator) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return key, OpEquals
	}
	op, ok := ParseOperator(key[open+1 : len(key)-1])
	if !ok {
		return key, OpEquals
	}
	return key[:open], op
}

func baseName(key string) string {
	if i := strings.IndexByte(key, '['); i > 0 {
		return key[:i]
	}
	return key
}

// parseList splits comma separated values, dropping blanks and duplicates.
func parseList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" || slices.Contains(out, part) {
				continue
			}
			out = append(out, part)
		}
	}
	return out
}

func parseSort(values []string) []SortKey {
	var keys []SortKey
	for _, field := range parseList(values) {
		dir := Ascending
		if strings.HasPrefix(field, "-") {
			dir = Descending
			field = strings.TrimSpace(field[1:])
		}
		if field == "" {
			continue
		}
		keys = append(keys, SortKey{Field: field, Direction: dir})
	}
	if len(keys) == 0 {
		return []SortKey{{Field: DefaultSortField, Direction: Descending}}
	}
	return keys
}

// parsePositive reads the leading integer of raw. Missing, non-numeric and
// zero values fall back to def; negative values clamp to 1.
func parsePositive(raw string, def int) int {
	n, ok := leadingInt(strings.TrimSpace(raw))
	switch {
	case !ok || n == 0:
		return def
	case n < 0:
		return 1
	}
	return n
}

func leadingInt(s string) (int, bool) {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

func first(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}
