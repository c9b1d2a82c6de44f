package analysis

import (
	"fmt"

	"github.com/nao1215/metahunter/internal/model"
)

// TimelineFallback is the only timeline entry of a file without usable metadata.
const TimelineFallback = "Not enough metadata to rebuild the file timeline."

// BuildTimeline reconstructs the history of a file from its metadata:
// creation, last modification, tool, device and capture location.
func BuildTimeline(md *model.Metadata) []string {
	timeline := make([]string, 0, 5)
	if md == nil {
		return append(timeline, TimelineFallback)
	}

	if md.CreatedAt != "" {
		if md.CameraModel != "" {
			timeline = append(timeline, fmt.Sprintf("%s: File created (captured with '%s').", md.CreatedAt, md.CameraModel))
		} else {
			timeline = append(timeline, fmt.Sprintf("%s: File created.", md.CreatedAt))
		}
	}

	if md.ModifiedAt != "" && md.ModifiedAt != md.CreatedAt {
		timeline = append(timeline, fmt.Sprintf("%s: Last recorded modification.", md.ModifiedAt))
	}

	tool := md.CreatorTool
	if tool == "" {
		tool = md.Software
	}
	if tool != "" {
		timeline = append(timeline, fmt.Sprintf("Creation/editing tool: %s.", tool))
	}

	if md.Device != "" {
		timeline = append(timeline, fmt.Sprintf("Associated device: %s.", md.Device))
	}

	if md.HasGPS() {
		timeline = append(timeline, fmt.Sprintf("EXIF coordinates: lat=%s, lon=%s.",
			model.FormatCoordinate(*md.GPSLatitude), model.FormatCoordinate(*md.GPSLongitude)))
	}

	if len(timeline) == 0 {
		timeline = append(timeline, TimelineFallback)
	}
	return timeline
}
