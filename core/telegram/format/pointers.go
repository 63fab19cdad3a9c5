package format

// DerefString safely dereferences a *string and returns a default value if nil.
func DerefString(s *string, defaultVal string) string {
	if s != nil {
		return *s
	}
	return defaultVal
}

// DerefInt64 safely dereferences a *int64 and returns a default value if nil.
func DerefInt64(i *int64, defaultVal int64) int64 {
	if i != nil {
		return *i
	}
	return defaultVal
}
