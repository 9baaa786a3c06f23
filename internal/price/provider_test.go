package price

import "testing"

func TestResolveCoinIDStaticTable(t *testing.T) {
	p := NewPaprikaProvider("")

	cases := []struct {
		symbol string
		want   string
	}{
		{"ETH", "eth-ethereum"},
		{"eth", "eth-ethereum"},
		{"  Ethereum  ", "eth-ethereum"},
		{"WETH", "weth-weth"},
		{"USDbC", "usdc-usd-coin"},
		{"DAI", "dai-dai"},
	}
	for _, tc := range cases {
		id, ok := p.resolveCoinID(tc.symbol)
		if !ok || id != tc.want {
			t.Errorf("resolveCoinID(%q) = %q, %v; want %q", tc.symbol, id, ok, tc.want)
		}
	}
}

func TestResolveCoinIDEmptySymbol(t *testing.T) {
	p := NewPaprikaProvider("")
	if _, ok := p.resolveCoinID(""); ok {
		t.Error("empty symbol must not resolve")
	}
	if _, ok := p.resolveCoinID("   "); ok {
		t.Error("blank symbol must not resolve")
	}
}

func TestResolveCoinIDUsesCache(t *testing.T) {
	p := NewPaprikaProvider("")
	p.ids["mysterycoin"] = "mystery-mysterycoin"

	id, ok := p.resolveCoinID("MYSTERYCOIN")
	if !ok || id != "mystery-mysterycoin" {
		t.Errorf("cached id not used: %q, %v", id, ok)
	}
}
