package store

// InstallBuiltinTemplates writes every built-in template
// (BuiltinTemplates) into s, skipping any template id already on disk so
// a later call never clobbers a template that has since been hand-edited
// in place. Matches §9's "Templates are installed once per store
// initialization" — callers run this once at process startup, not on
// every request.
func InstallBuiltinTemplates(s *WorkflowStore) error {
	for _, tmpl := range BuiltinTemplates() {
		if s.Exists(tmpl.ID) {
			continue
		}
		if err := s.Save(tmpl); err != nil {
			return err
		}
	}
	return nil
}
