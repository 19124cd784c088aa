package eventparse

import (
	"sync"

	"wallet-txcore/internal/chain"
	"wallet-txcore/internal/dialect"
)

// Value is an amount with the token it is denominated in.
type Value struct {
	Value    string `json:"value"`
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
}

// Result is what the parser extracts from one transaction's events.
type Result struct {
	Amount Value `json:"amount"`
	Fee    Value `json:"fee"`
}

// Input is a parse request. Native is the chain's fee token, Token the sent one.
type Input struct {
	Family dialect.Family
	Native *chain.Asset
	Token  *chain.Asset
	Events []Event
}

// Pass is the mutable state of one walk over the events.
type Pass struct {
	in        Input
	res       *Result
	index     int
	feeSet    bool
	feeNative bool
}

// Index is the position of the current event.
func (p *Pass) Index() int { return p.index }

// Token is the asset the transaction sends.
func (p *Pass) Token() *chain.Asset { return p.in.Token }

func (p *Pass) SetAmount(v string) { p.res.Amount.Value = v }

// SetTokenFee records a dedicated fee leg, denominated in the sent token.
// The native withdrawal fallback is off for the rest of the pass.
func (p *Pass) SetTokenFee(v string) {
	p.res.Fee = Value{Value: v, Symbol: p.in.Token.Symbol, Decimals: p.in.Token.Decimals}
	p.feeSet = true
	p.feeNative = false
}

// Rule maps one event to an update of the pass.
type Rule struct {
	Section string
	Method  string
	Apply   func(p *Pass, ev Event)
}

// Table is the rule set of one event-log family. When Applies is set and
// returns false for the sent token, the default table is used instead.
type Table struct {
	Applies func(token *chain.Asset) bool
	Rules   []Rule
}

func amountAt(i int) func(*Pass, Event) {
	return func(p *Pass, ev Event) { p.SetAmount(ev.Field(i)) }
}

func nonNative(token *chain.Asset) bool { return token != nil && !token.IsNative() }

var defaultTable = Table{Rules: []Rule{
	{"balances", "transfer", amountAt(2)},
	{"xTokens", "transferred", amountAt(2)},
}}

var builtinTables = map[dialect.Family]Table{
	dialect.FamilyDefault: defaultTable,
	// Reserve-currency chains emit the fee leg first and the amount leg
	// after it, both as currencies.Transferred.
	dialect.FamilyAcala: {Applies: nonNative, Rules: []Rule{
		{"currencies", "transferred", func(p *Pass, ev Event) {
			if p.Index() == 0 {
				p.SetTokenFee(ev.Field(3))
				return
			}
			p.SetAmount(ev.Field(3))
		}},
		{"tokens", "withdrawn", amountAt(2)},
	}},
	dialect.FamilyKintsugi: {Rules: []Rule{{"tokens", "transfer", amountAt(3)}}},
	dialect.FamilyGenshiro: {Rules: []Rule{{"eqBalances", "transfer", amountAt(3)}}},
	dialect.FamilyBifrost: {Rules: []Rule{
		{"tokens", "withdrawn", amountAt(2)},
		{"balances", "transfer", amountAt(2)},
	}},
	dialect.FamilyAstar:     {Applies: nonNative, Rules: []Rule{{"assets", "burned", amountAt(2)}}},
	dialect.FamilyMoonbeam:  {Applies: nonNative, Rules: []Rule{{"assets", "burned", amountAt(2)}}},
	// Asset-hub chains report native sends only through the withdrawal.
	dialect.FamilyStatemint: {Rules: []Rule{
		{"assets", "transferred", func(p *Pass, ev Event) {
			if nonNative(p.Token()) {
				p.SetAmount(ev.Field(3))
			}
		}},
		{"balances", "withdraw", func(p *Pass, ev Event) {
			if !nonNative(p.Token()) {
				p.SetAmount(ev.Field(1))
			}
		}},
	}},
}

// Parser resolves a chain's event-log family and walks its events.
type Parser struct {
	mu       sync.RWMutex
	families *dialect.Registry
	tables   map[dialect.Family]Table
}

func NewParser(families *dialect.Registry) *Parser {
	tables := make(map[dialect.Family]Table, len(builtinTables))
	for f, t := range builtinTables {
		tables[f] = t
	}
	return &Parser{families: families, tables: tables}
}

// Register installs the table of a new event-log family.
func (p *Parser) Register(f dialect.Family, t Table) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tables[f] = t
}

// ParseChain parses events of a transaction on chainSlug.
func (p *Parser) ParseChain(chainSlug string, native, token *chain.Asset, events []Event) Result {
	return p.Parse(Input{
		Family: p.families.FamilyOf(dialect.CategoryEventLog, chainSlug),
		Native: native,
		Token:  token,
		Events: events,
	})
}

// Parse walks in.Events in emission order. Position matters: on
// reserve-currency families the first transfer event is the fee leg.
// After the family rules every event also goes through the native fee
// fallback (balances.withdraw data[1], tokens.withdrawn data[2]). It sets the
// fee at most once and never after a dedicated fee leg has switched the fee
// to the sent token.
func (p *Parser) Parse(in Input) Result {
	if in.Token == nil {
		in.Token = in.Native
	}
	if in.Native == nil {
		in.Native = in.Token
	}
	if in.Native == nil {
		in.Native = &chain.Asset{}
		in.Token = in.Native
	}

	res := &Result{
		Amount: Value{Value: "0", Symbol: in.Token.Symbol, Decimals: in.Token.Decimals},
		Fee:    Value{Value: "0", Symbol: in.Native.Symbol, Decimals: in.Native.Decimals},
	}
	table := p.table(in.Family, in.Token)
	st := &Pass{in: in, res: res, feeNative: true}

	for i, ev := range in.Events {
		st.index = i
		applyRules(table.Rules, st, ev)
		if !st.feeNative || st.feeSet {
			continue
		}
		switch {
		case ev.Is("balances", "withdraw"):
			res.Fee.Value = ev.Field(1)
			st.feeSet = true
		case ev.Is("tokens", "withdrawn"):
			res.Fee.Value = ev.Field(2)
			st.feeSet = true
		}
	}
	return *res
}

func (p *Parser) table(f dialect.Family, token *chain.Asset) Table {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.tables[f]
	if !ok || (t.Applies != nil && !t.Applies(token)) {
		return p.tables[dialect.FamilyDefault]
	}
	return t
}

// applyRules runs the first rule matching ev.
func applyRules(rules []Rule, st *Pass, ev Event) {
	for _, r := range rules {
		if ev.Is(r.Section, r.Method) {
			r.Apply(st, ev)
			return
		}
	}
}
