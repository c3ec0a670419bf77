package exchange

import (
	"errors"
	"strings"
)

var ErrBadPair = errors.New(`pair must look like "BASE/QUOTE"`)

// SplitPair splits a canonical "BASE/QUOTE" pair.
func SplitPair(pair string) (base, quote string, err error) {
	base, quote, ok := strings.Cut(strings.ToUpper(strings.TrimSpace(pair)), "/")
	if !ok || base == "" || quote == "" || strings.Contains(quote, "/") {
		return "", "", ErrBadPair
	}
	return base, quote, nil
}

// SymbolConverter turns a canonical pair into the venue's native symbol.
type SymbolConverter interface {
	// Native maps e.g. BTC/USDT -> BTCUSDT, BTC-USDT, XBT/USDT
	Native(pair string) string
}

// CommonSymbolConverter joins base and quote with a separator, optionally
// renaming assets the venue spells differently (Kraken's XBT).
type CommonSymbolConverter struct {
	separator string
	aliases   map[string]string
}

func NewCommonSymbolConverter(separator string, aliases map[string]string) *CommonSymbolConverter {
	return &CommonSymbolConverter{separator: separator, aliases: aliases}
}

func (c *CommonSymbolConverter) Native(pair string) string {
	base, quote, err := SplitPair(pair)
	if err != nil {
		return ""
	}
	if a, ok := c.aliases[base]; ok {
		base = a
	}
	if a, ok := c.aliases[quote]; ok {
		quote = a
	}
	return base + c.separator + quote
}

// PairTable maps canonical pairs to native symbols and back. Built once,
// read-only afterwards, so it needs no locking.
type PairTable struct {
	pairs       []string
	toNative    map[string]string
	toCanonical map[string]string
}

// NewPairTable maps every pair through conv unless overrides names the
// native symbol explicitly. Invalid or duplicate pairs are skipped.
func NewPairTable(pairs []string, conv SymbolConverter, overrides map[string]string) *PairTable {
	t := &PairTable{
		toNative:    make(map[string]string, len(pairs)),
		toCanonical: make(map[string]string, len(pairs)),
	}
	for _, p := range pairs {
		base, quote, err := SplitPair(p)
		if err != nil {
			continue
		}
		canonical := base + "/" + quote
		if _, dup := t.toNative[canonical]; dup {
			continue
		}
		native := strings.TrimSpace(overrides[canonical])
		if native == "" {
			native = conv.Native(canonical)
		}
		if native == "" {
			continue
		}
		t.pairs = append(t.pairs, canonical)
		t.toNative[canonical] = native
		t.toCanonical[native] = canonical
	}
	return t
}

func (t *PairTable) Native(pair string) (string, bool) {
	n, ok := t.toNative[pair]
	return n, ok
}

func (t *PairTable) Canonical(native string) (string, bool) {
	c, ok := t.toCanonical[native]
	return c, ok
}

// Pairs returns canonical pairs in configuration order.
func (t *PairTable) Pairs() []string {
	out := make([]string, len(t.pairs))
	copy(out, t.pairs)
	return out
}

// NativeSymbols returns native symbols in configuration order.
func (t *PairTable) NativeSymbols() []string {
	out := make([]string, 0, len(t.pairs))
	for _, p := range t.pairs {
		out = append(out, t.toNative[p])
	}
	return out
}

func (t *PairTable) Len() int { return len(t.pairs) }
