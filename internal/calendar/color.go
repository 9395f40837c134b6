package calendar

import "strings"

// Palette holds the colours assignees are mapped onto
var Palette = [...]string{
	"#4285F4", "#DB4437", "#F4B400", "#0F9D58", "#AB47BC",
	"#00ACC1", "#EF6C00", "#5C6BC0", "#26A69A", "#EC407A",
}

// ColorFor derives a stable colour from an assignee string. Events without
// assignees share the colour of "default".
func ColorFor(assignees string) string {
	if strings.TrimSpace(assignees) == "" {
		assignees = "default"
	}
	var h uint32
	for _, r := range assignees {
		h = h*33 + uint32(r)
	}
	return Palette[h%uint32(len(Palette))]
}
