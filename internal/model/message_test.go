package model

import "testing"

func TestApprovalCardRoundTrip(t *testing.T) {
	link := "https://open.kakao.com/o/xyz"
	code := "1234"
	content, err := EncodeApprovalCard("독서모임", &link, &code)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	card, ok := DecodeApprovalCard(content)
	if !ok {
		t.Fatalf("decode failed for %q", content)
	}
	if card.Title != "독서모임" || *card.Link != link || *card.Code != code {
		t.Fatalf("round trip lost fields: %+v", card)
	}
}

func TestApprovalCardNilFields(t *testing.T) {
	content, err := EncodeApprovalCard("테니스", nil, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	card, ok := DecodeApprovalCard(content)
	if !ok {
		t.Fatal("decode failed")
	}
	if card.Link != nil || card.Code != nil {
		t.Fatalf("nil fields not preserved: %+v", card)
	}
}

func TestDecodeApprovalCardFallback(t *testing.T) {
	// Plain notices and broken JSON render as text, never error.
	for _, content := range []string{
		"📌 예약이 시작되었습니다",
		`{"type":"other","title":"x"}`,
		`{"type":`,
		"",
	} {
		if card, ok := DecodeApprovalCard(content); ok {
			t.Fatalf("%q decoded as card: %+v", content, card)
		}
	}
}
