package extractor

import (
	"reflect"
	"testing"
)

func TestParseExtractorArgs(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want ExtractorArgs
	}{
		{
			name: "single key",
			in:   "youtube:player_client=web",
			want: ExtractorArgs{"youtube": {"player_client": {"web"}}},
		},
		{
			name: "multiple values and keys",
			in:   "youtube:player_client=web,android;lang=en",
			want: ExtractorArgs{"youtube": {
				"player_client": {"web", "android"},
				"lang":          {"en"},
			}},
		},
		{
			name: "key normalization",
			in:   "youtube:Player-Client=ios",
			want: ExtractorArgs{"youtube": {"player_client": {"ios"}}},
		},
		{
			name: "escaped comma stays literal",
			in:   `generic:impersonate=chrome\,110`,
			want: ExtractorArgs{"generic": {"impersonate": {"chrome,110"}}},
		},
		{
			name: "two extractors",
			in:   "youtube:lang=en funimation:version=uncut",
			want: ExtractorArgs{
				"youtube":    {"lang": {"en"}},
				"funimation": {"version": {"uncut"}},
			},
		},
		{
			name: "malformed tokens skipped",
			in:   "noprefix youtube:novalue youtube:lang=en",
			want: ExtractorArgs{"youtube": {"lang": {"en"}}},
		},
		{
			name: "empty input",
			in:   "",
			want: ExtractorArgs{},
		},
	}

	for _, tc := range cases {
		got := ParseExtractorArgs(tc.in)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s: ParseExtractorArgs(%q) = %v, want %v", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestExtractorArgsCommandLine(t *testing.T) {
	args := ParseExtractorArgs("youtube:player_client=web,android;lang=en")
	flags := args.CommandLine()

	want := []string{"--extractor-args", "youtube:lang=en;player_client=web,android"}
	if !reflect.DeepEqual(flags, want) {
		t.Fatalf("CommandLine() = %v, want %v", flags, want)
	}
}

func TestExtractorArgsSet(t *testing.T) {
	args := ExtractorArgs{}
	args.Set("youtubepot-bgutilhttp", "base_url", "http://bgutil:4416")

	want := ExtractorArgs{"youtubepot-bgutilhttp": {"base_url": {"http://bgutil:4416"}}}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("Set() produced %v, want %v", args, want)
	}
}
