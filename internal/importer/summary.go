package importer

import (
	"fmt"
	"strings"

	"github.com/d66d666/SchMang-sub000/internal/model"
)

const (
	segmentSeparator    = " • "
	maxListedDuplicates = 5
)

type Summary struct {
	Message string
	Warning string
}

// Summarize renders the user-facing status for a finished import. Zero
// counts are left out of the message; Warning is set only when the file
// contained duplicate identifiers.
func Summarize(kind model.ImportKind, counts Counts, duplicates []string) Summary {
	noun := "طالب"
	if kind == model.ImportTeachers {
		noun = "معلم"
	}

	var segments []string
	if counts.Inserted > 0 {
		segments = append(segments, fmt.Sprintf("تم إضافة %d %s جديد", counts.Inserted, noun))
	}
	if counts.Updated > 0 {
		segments = append(segments, fmt.Sprintf("تم تحديث %d %s", counts.Updated, noun))
	}
	if counts.Skipped > 0 {
		segments = append(segments, fmt.Sprintf("تم تخطي %d %s (موجود مسبقاً)", counts.Skipped, noun))
	}
	if counts.GroupsCreated > 0 {
		segments = append(segments, fmt.Sprintf("تم إنشاء %d مجموعة جديدة", counts.GroupsCreated))
	}

	summary := Summary{Message: "لم يتم إجراء أي تغييرات"}
	if len(segments) > 0 {
		summary.Message = strings.Join(segments, segmentSeparator)
	}

	if len(duplicates) > 0 {
		listed := duplicates
		if len(listed) > maxListedDuplicates {
			listed = listed[:maxListedDuplicates]
		}
		summary.Warning = fmt.Sprintf("تم تجاهل %d سجل مكرر في الملف: %s", len(duplicates), strings.Join(listed, "، "))
		if len(duplicates) > maxListedDuplicates {
			summary.Warning += "..."
		}
	}

	return summary
}
