package propose

import "testing"

func TestParseProposals(t *testing.T) {
	text := `Here are my proposals:
[
  {"title": "Be terse", "content": "Keep replies short", "rationale": "repeated corrections"},
  {"title": "Confirm paths", "content": "Echo the target path before editing", "rationale": "wrong-file edits"}
]
Let me know.`

	proposals, err := parseProposals(text)
	if err != nil {
		t.Fatalf("parseProposals: %v", err)
	}
	if len(proposals) != 2 {
		t.Fatalf("expected 2 proposals, got %d", len(proposals))
	}
	if proposals[0].Title != "Be terse" {
		t.Fatalf("unexpected first proposal %+v", proposals[0])
	}
}

func TestParseProposalsCodeFence(t *testing.T) {
	text := "```json\n[{\"title\": \"t\", \"content\": \"c\", \"rationale\": \"r\"}]\n```"
	proposals, err := parseProposals(text)
	if err != nil {
		t.Fatalf("parseProposals: %v", err)
	}
	if len(proposals) != 1 {
		t.Fatalf("expected 1 proposal, got %d", len(proposals))
	}
}

func TestParseProposalsCapsAtThree(t *testing.T) {
	text := `[
  {"title": "a", "content": "c", "rationale": "r"},
  {"title": "b", "content": "c", "rationale": "r"},
  {"title": "c", "content": "c", "rationale": "r"},
  {"title": "d", "content": "c", "rationale": "r"}
]`
	proposals, err := parseProposals(text)
	if err != nil {
		t.Fatalf("parseProposals: %v", err)
	}
	if len(proposals) != 3 {
		t.Fatalf("expected cap at 3, got %d", len(proposals))
	}
}

func TestParseProposalsEmptyArray(t *testing.T) {
	proposals, err := parseProposals("[]")
	if err != nil {
		t.Fatalf("parseProposals: %v", err)
	}
	if len(proposals) != 0 {
		t.Fatalf("expected no proposals, got %d", len(proposals))
	}
}

func TestParseProposalsNoArray(t *testing.T) {
	if _, err := parseProposals("I have no proposals today."); err == nil {
		t.Fatal("expected an error for prose without a JSON array")
	}
}
