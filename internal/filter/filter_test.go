package filter

import (
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/imgajeed76/invgrid/internal/record"
)

func sampleData() []record.Record {
	return []record.Record{
		{"id": 1.0, "customer_name": "Acme Textiles", "color": "red", "invoice_date": "2024-03-20", "customer": map[string]any{"city": "Bangkok"}},
		{"id": 2.0, "customer_name": "Beta Weaving", "color": "blue", "invoice_date": "2024-03-10", "customer": map[string]any{"city": "Chiang Mai"}},
		{"id": 3.0, "customer_name": "acme outlet", "color": "", "invoice_date": "not a date"},
		{"id": 4.0, "customer_name": "Gamma", "color": "red", "invoice_date": "Fri, 15 Mar 2024 00:00:00 GMT"},
	}
}

func ids(rs []record.Record) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.String("id")
	}
	return out
}

func sampleDefs() []Definition {
	return []Definition{
		{ID: "customer_name", Type: TextInput},
		{ID: "color", Type: Dropdown, MultiSelect: true},
		{ID: "city", Type: Dropdown, DataKey: "customer.city"},
		{ID: "date_from", Type: DateInput, DataKey: "invoice_date", Range: From},
		{ID: "date_to", Type: DateInput, DataKey: "invoice_date", Range: To},
		{ID: "stock", Type: Radio, Options: []Option{{Value: "all"}, {Value: "in"}},
			Predicate: func(r record.Record, v Value, _ Values) bool {
				return v == Choice("all") || r.String("color") != ""
			}},
	}
}

func TestApplyAllWithDefaultsKeepsEverything(t *testing.T) {
	data := sampleData()
	e := NewEngine(sampleDefs(), time.Millisecond)

	got := ApplyAll(data, e.Definitions(), e.Defaults())
	if !reflect.DeepEqual(ids(got), ids(data)) {
		t.Fatalf("got %v, want %v", ids(got), ids(data))
	}
	if e.Active() {
		t.Fatal("defaults should not count as active")
	}
}

func TestMatchesText(t *testing.T) {
	data := sampleData()
	got := ApplyAll(data, sampleDefs(), Values{"customer_name": Text("ACME")})
	if !reflect.DeepEqual(ids(got), []string{"1", "3"}) {
		t.Fatalf("got %v", ids(got))
	}
	got = ApplyAll(data, sampleDefs(), Values{"customer_name": Text("   ")})
	if len(got) != len(data) {
		t.Fatal("blank text should match all")
	}
}

func TestMatchesMultiSelectAndNested(t *testing.T) {
	data := sampleData()
	got := ApplyAll(data, sampleDefs(), Values{"color": Multi{"red"}})
	if !reflect.DeepEqual(ids(got), []string{"1", "4"}) {
		t.Fatalf("multi got %v", ids(got))
	}
	got = ApplyAll(data, sampleDefs(), Values{"city": Text("chiang")})
	if !reflect.DeepEqual(ids(got), []string{"2"}) {
		t.Fatalf("nested got %v", ids(got))
	}
}

func TestPredicateTakesPrecedence(t *testing.T) {
	got := ApplyAll(sampleData(), sampleDefs(), Values{"stock": Choice("in")})
	if !reflect.DeepEqual(ids(got), []string{"1", "2", "4"}) {
		t.Fatalf("got %v", ids(got))
	}
}

func TestRadioWithoutPredicateComparesText(t *testing.T) {
	data := []record.Record{
		{"id": 1.0, "qty": 5.0},
		{"id": 2.0, "qty": 7.0},
		{"id": 3.0, "qty": "5"},
		{"id": 4.0},
	}
	defs := []Definition{{ID: "qty", Type: Radio, Options: []Option{{Value: "5"}, {Value: "7"}}}}

	got := ApplyAll(data, defs, Values{"qty": Choice("5")})
	if !reflect.DeepEqual(ids(got), []string{"1", "3"}) {
		t.Fatalf("got %v, want [1 3]", ids(got))
	}
	if got := ApplyAll(data, defs, Values{"qty": Choice("")}); len(got) != len(data) {
		t.Fatalf("empty choice kept %d rows, want %d", len(got), len(data))
	}
}

func TestDateFilterFrom(t *testing.T) {
	defs := sampleDefs()
	got := ApplyAll(sampleData(), defs, Values{"date_from": Date("15/03/24")})
	// id 3 has an unparsable date and fails open.
	if !reflect.DeepEqual(ids(got), []string{"1", "3", "4"}) {
		t.Fatalf("from got %v", ids(got))
	}
	got = ApplyAll(sampleData(), defs, Values{"date_to": Date("15/03/24")})
	if !reflect.DeepEqual(ids(got), []string{"2", "3", "4"}) {
		t.Fatalf("to got %v", ids(got))
	}
}

func TestDateFilterMalformedFailsOpen(t *testing.T) {
	for _, v := range []Date{"15/3/24", "1503/2024", "99/99/99", "aa/bb/cc"} {
		got := ApplyAll(sampleData(), sampleDefs(), Values{"date_from": v})
		if len(got) != 4 {
			t.Fatalf("%q should match all, got %v", v, ids(got))
		}
	}
}

func TestParseDDMMYYCentury(t *testing.T) {
	d, ok := ParseDDMMYY("01/01/50")
	if !ok || d.Year() != 1950 {
		t.Fatalf("got %v %v, want 1950", d, ok)
	}
	d, ok = ParseDDMMYY("01/01/49")
	if !ok || d.Year() != 2049 {
		t.Fatalf("got %v %v, want 2049", d, ok)
	}
}

func TestOptionsFor(t *testing.T) {
	data := sampleData()
	got := OptionsFor(Definition{ID: "color"}, data)
	if !reflect.DeepEqual(got, []string{"blue", "red"}) {
		t.Fatalf("derived options = %v", got)
	}

	explicit := Definition{ID: "x", Options: []Option{{Value: "z"}, {Value: "a"}}}
	if got := OptionsFor(explicit, data); !reflect.DeepEqual(got, []string{"z", "a"}) {
		t.Fatalf("explicit options = %v", got)
	}

	extract := Definition{ID: "words", Extract: func(r record.Record) []string {
		return strings.Fields(r.String("customer_name"))
	}}
	got = OptionsFor(extract, data[:2])
	if !reflect.DeepEqual(got, []string{"Acme", "Beta", "Textiles", "Weaving"}) {
		t.Fatalf("extracted options = %v", got)
	}

	if got := SearchOptions([]string{"Red", "Blue", "reddish"}, "RED"); !reflect.DeepEqual(got, []string{"Red", "reddish"}) {
		t.Fatalf("search = %v", got)
	}
}

func TestEngineRejectsWrongShape(t *testing.T) {
	e := NewEngine(sampleDefs(), time.Millisecond)
	if err := e.Set("color", Text("red")); err == nil {
		t.Fatal("multi-select filter accepted a Text value")
	}
	if err := e.Set("missing", Text("x")); err == nil {
		t.Fatal("unknown filter accepted")
	}
	if _, ok := e.Value("stock").(Choice); !ok {
		t.Fatalf("radio default has wrong shape: %T", e.Value("stock"))
	}
	if e.Value("stock") != Choice("all") {
		t.Fatalf("radio default = %v, want first option", e.Value("stock"))
	}
}

func TestEngineImmediateAndClear(t *testing.T) {
	e := NewEngine(sampleDefs(), time.Hour)
	var got []Values
	e.OnChange = func(v Values) { got = append(got, v) }

	if err := e.Toggle("color", "red"); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !reflect.DeepEqual(got[0]["color"], Multi{"red"}) {
		t.Fatalf("toggle notifications = %v", got)
	}
	if !e.Active() {
		t.Fatal("expected active filters")
	}

	e.Clear()
	if len(got) != 2 || e.Active() {
		t.Fatalf("clear should notify and reset: %v", got)
	}
}

func TestEngineInputDebounces(t *testing.T) {
	e := NewEngine(sampleDefs(), 20*time.Millisecond)

	var mu sync.Mutex
	var calls []Values
	done := make(chan struct{}, 4)
	e.OnChange = func(v Values) {
		mu.Lock()
		calls = append(calls, v)
		mu.Unlock()
		done <- struct{}{}
	}

	for _, s := range []string{"a", "ac", "acm", "acme"} {
		if err := e.Input("customer_name", Text(s)); err != nil {
			t.Fatal(err)
		}
	}
	if !e.Pending() {
		t.Fatal("expected a pending evaluation")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced notification never fired")
	}
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 1 {
		t.Fatalf("got %d notifications, want 1", len(calls))
	}
	if calls[0]["customer_name"] != Text("acme") {
		t.Fatalf("final value = %v", calls[0]["customer_name"])
	}
}

func TestEngineSetCancelsPendingInput(t *testing.T) {
	e := NewEngine(sampleDefs(), 30*time.Millisecond)
	var mu sync.Mutex
	count := 0
	e.OnChange = func(Values) {
		mu.Lock()
		count++
		mu.Unlock()
	}

	_ = e.Input("customer_name", Text("ac"))
	_ = e.Set("stock", Choice("in"))
	time.Sleep(90 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Fatalf("got %d notifications, want 1", count)
	}
}

func TestEngineDispatch(t *testing.T) {
	e := NewEngine(sampleDefs(), 5*time.Millisecond)
	queue := make(chan func(), 1)
	e.Dispatch = func(fn func()) { queue <- fn }

	fired := false
	e.OnChange = func(Values) { fired = true }
	_ = e.Input("customer_name", Text("x"))

	select {
	case fn := <-queue:
		if fired {
			t.Fatal("notification ran before dispatch")
		}
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("nothing dispatched")
	}
	if !fired {
		t.Fatal("dispatched func did not notify")
	}
}

func TestParse(t *testing.T) {
	multi := Definition{ID: "color", Type: Dropdown, MultiSelect: true}
	radio := Definition{ID: "stock", Type: Radio, Options: []Option{{Value: "in_stock"}, {Value: "all"}}}
	date := Definition{ID: "from", Type: DateInput}
	text := Definition{ID: "inv", Type: TextInput}

	if v, err := Parse(multi, "red, blue,,red"); err != nil || !reflect.DeepEqual(v, Multi{"red", "blue"}) {
		t.Fatalf("multi = %v, %v", v, err)
	}
	if v, _ := Parse(multi, "red,red"); !reflect.DeepEqual(v, Multi{"red"}) {
		t.Fatalf("repeated option = %v, want [red]", v)
	}
	if v, err := Parse(radio, "ALL"); err != nil || v != Choice("all") {
		t.Fatalf("radio = %v, %v", v, err)
	}
	if v, _ := Parse(radio, ""); v != Choice("in_stock") {
		t.Fatalf("empty radio = %v", v)
	}
	if _, err := Parse(radio, "some"); err == nil {
		t.Fatal("unknown radio choice accepted")
	}
	if _, err := Parse(date, "2024-03-01"); err == nil {
		t.Fatal("ISO date accepted for DD/MM/YY filter")
	}
	if v, err := Parse(date, "01/03/24"); err != nil || v != Date("01/03/24") {
		t.Fatalf("date = %v, %v", v, err)
	}
	if v, _ := Parse(text, "  INV1 "); v != Text("INV1") {
		t.Fatalf("text = %v", v)
	}
}
