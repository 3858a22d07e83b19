package memstore

import "github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/domain"

func clonePrompt(p *domain.Prompt) *domain.Prompt {
	c := *p
	c.Category = cloneStringPtr(p.Category)
	c.Tags = cloneTags(p.Tags)
	c.Metadata = cloneMeta(p.Metadata)
	return &c
}

func cloneVersion(v *domain.PromptVersion) *domain.PromptVersion {
	c := *v
	c.Changes = append([]domain.VersionChange(nil), v.Changes...)
	c.Notes = cloneStringPtr(v.Notes)
	c.ParentVersionID = cloneStringPtr(v.ParentVersionID)
	return &c
}

func cloneAutoSave(a *domain.AutoSave) *domain.AutoSave {
	c := *a
	c.PromptID = cloneStringPtr(a.PromptID)
	c.Category = cloneStringPtr(a.Category)
	c.Tags = cloneTags(a.Tags)
	c.Metadata = cloneMeta(a.Metadata)
	return &c
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return append([]string(nil), tags...)
}

func cloneMeta(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
