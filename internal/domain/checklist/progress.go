package checklist

import (
	"github.com/target/opscrm-api/internal/domain/model"
)

// BuildState derives the checklist view for j. Template order drives item order; entries in
// the job's map that the template does not list are ignored. A nil template yields an empty,
// incomplete state.
func BuildState(j *model.Job, tmpl *model.ChecklistTemplate, canMutate bool) model.JobChecklistState {
	st := model.JobChecklistState{
		JobID:      j.ID,
		TemplateID: j.ChecklistTemplateID,
		Items:      []model.ChecklistItemState{},
		CanMutate:  canMutate,
	}
	if tmpl == nil {
		return st
	}

	st.TemplateName = tmpl.Name
	st.Items = make([]model.ChecklistItemState, 0, len(tmpl.Items))
	for _, text := range tmpl.Items {
		done := j.ItemStatus[text]
		if done {
			st.Completed++
		}
		st.Items = append(st.Items, model.ChecklistItemState{Text: text, Done: done})
	}
	st.Total = len(tmpl.Items)
	st.Percent = Percent(st.Completed, st.Total)
	st.IsComplete = st.Total > 0 && st.Completed == st.Total
	return st
}

// Percent returns completed/total as a whole percentage, rounded down. Zero total is 0%.
func Percent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return completed * 100 / total
}

// SeedItems returns a fresh item map with every template item marked not done.
func SeedItems(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, it := range items {
		out[it] = false
	}
	return out
}

// AllDone reports whether every template item is marked done in status.
func AllDone(items []string, status map[string]bool) bool {
	if len(items) == 0 {
		return false
	}
	for _, it := range items {
		if !status[it] {
			return false
		}
	}
	return true
}
