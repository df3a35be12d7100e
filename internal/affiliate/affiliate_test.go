package affiliate

import (
	"testing"

	"vinylscout/internal/catalog"
)

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		key  string
		code string
		want string
	}{
		{
			name: "adds parameter",
			url:  "https://www.yes24.com/Product/Goods/1234",
			key:  "PID", code: "vs01",
			want: "https://www.yes24.com/Product/Goods/1234?PID=vs01",
		},
		{
			name: "keeps existing parameters in order",
			url:  "https://www.aladin.co.kr/shop/wproduct.aspx?ItemId=42&start=we",
			key:  "partner", code: "vinyl",
			want: "https://www.aladin.co.kr/shop/wproduct.aspx?ItemId=42&start=we&partner=vinyl",
		},
		{
			name: "overwrites existing value",
			url:  "https://link.coupang.com/p/1?subId=old&q=lp",
			key:  "subId", code: "new",
			want: "https://link.coupang.com/p/1?subId=new&q=lp",
		},
		{
			name: "collapses repeated keys",
			url:  "https://shop.example/p?ref=a&x=1&ref=b",
			key:  "ref", code: "c",
			want: "https://shop.example/p?ref=c&x=1",
		},
		{
			name: "escapes code",
			url:  "https://shop.example/p",
			key:  "ref", code: "a b&c",
			want: "https://shop.example/p?ref=a+b%26c",
		},
		{
			name: "keeps fragment",
			url:  "https://shop.example/p?x=1#reviews",
			key:  "ref", code: "c",
			want: "https://shop.example/p?x=1&ref=c#reviews",
		},
		{
			name: "relative url falls back to concatenation",
			url:  "/goods/77",
			key:  "ref", code: "c",
			want: "/goods/77?ref=c",
		},
		{
			name: "relative url with query",
			url:  "goods.php?id=7",
			key:  "ref", code: "c",
			want: "goods.php?id=7&ref=c",
		},
		{
			name: "non http scheme",
			url:  "ftp://shop.example/p?x=1",
			key:  "ref", code: "c",
			want: "ftp://shop.example/p?x=1&ref=c",
		},
		{
			name: "no code leaves url unchanged",
			url:  "https://shop.example/p?ref=a",
			key:  "ref", code: "",
			want: "https://shop.example/p?ref=a",
		},
		{
			name: "no key leaves url unchanged",
			url:  "https://shop.example/p",
			key:  "", code: "c",
			want: "https://shop.example/p",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offer := catalog.Offer{URL: tt.url, AffiliateParamKey: tt.key, AffiliateCode: tt.code}
			if got := BuildURL(offer); got != tt.want {
				t.Fatalf("BuildURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildURLDeterministic(t *testing.T) {
	offer := catalog.Offer{URL: "https://shop.example/p?b=2&a=1", AffiliateParamKey: "ref", AffiliateCode: "c"}
	first := BuildURL(offer)
	for range 10 {
		if got := BuildURL(offer); got != first {
			t.Fatalf("BuildURL not deterministic: %q vs %q", got, first)
		}
	}
	again := BuildURL(catalog.Offer{URL: first, AffiliateParamKey: "ref", AffiliateCode: "c"})
	if again != first {
		t.Fatalf("applying twice changed the url: %q -> %q", first, again)
	}
}
