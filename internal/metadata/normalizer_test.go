package metadata

import "testing"

func TestCleanQuery(t *testing.T) {
	tests := []struct {
		name string
		info TrackInfo
		want string
	}{
		{
			name: "already clean",
			info: TrackInfo{Artist: String("IU"), Title: String("Blueming")},
			want: "IU Blueming",
		},
		{
			name: "official audio parentheses",
			info: TrackInfo{Artist: String("IU"), Title: String("Blueming (Official Audio)")},
			want: "IU Blueming",
		},
		{
			name: "official music video brackets",
			info: TrackInfo{Artist: String("IU"), Title: String("Blueming [Official Music Video]")},
			want: "IU Blueming",
		},
		{
			name: "mv tag",
			info: TrackInfo{Artist: String("IU"), Title: String("Blueming [MV]")},
			want: "IU Blueming",
		},
		{
			name: "bitrate tag",
			info: TrackInfo{Title: String("Blueming (320kbps)")},
			want: "Blueming",
		},
		{
			name: "featuring",
			info: TrackInfo{Artist: String("IU"), Title: String("Eight (feat. SUGA)")},
			want: "IU Eight",
		},
		{
			name: "underscores",
			info: TrackInfo{Title: String("Good_Day")},
			want: "Good Day",
		},
		{
			name: "title becomes empty",
			info: TrackInfo{Artist: String("IU"), Title: String("(Official Video)")},
			want: "IU",
		},
		{
			name: "nothing known",
			info: TrackInfo{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanQuery(tt.info); got != tt.want {
				t.Errorf("CleanQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}
