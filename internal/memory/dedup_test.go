package memory

import "testing"

func TestTokenOverlapRatio(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "water the plants", "water the plants", 1},
		{"one shared word", "water the plants", "call the dentist", 1.0 / 3.0},
		{"empty a", "", "call the dentist", 0},
		{"empty b", "water the plants", "", 0},
		{"punctuation ignored", "Water the plants!", "water the plants.", 1},
		{"subset", "pay rent", "remember to pay rent this month", 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := tokenOverlapRatio(c.a, c.b)
			if diff := got - c.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("tokenOverlapRatio(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
			}
		})
	}
}

func TestTokenSetTrimsPunctuation(t *testing.T) {
	set := tokenSet(`Hello, "world"! Isn't (this) great?`)
	want := []string{"hello", "world", "isn't", "this", "great"}
	for _, token := range want {
		if !set[token] {
			t.Errorf("tokenSet missing %q in %v", token, set)
		}
	}
}
