package normalize

import "testing"

func TestContains(t *testing.T) {
	tests := []struct {
		name string
		in   string
		part string
		want bool
	}{
		{name: "exact", in: "Alice", part: "Alice", want: true},
		{name: "case", in: "Alice", part: "aLI", want: true},
		{name: "cyrillic", in: "Сергей", part: "СЕР", want: true},
		{name: "spaces", in: "Bob", part: " bo ", want: true},
		{name: "missing", in: "Bob", part: "al", want: false},
		{name: "empty part", in: "Bob", part: "", want: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Contains(tt.in, tt.part); got != tt.want {
				t.Errorf("Contains() = %v, want %v", got, tt.want)
			}
		})
	}
}
