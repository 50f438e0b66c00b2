package modules

// Info is a serializable description of a module
type Info struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	DependsOn   []string    `json:"depends_on"`
	Required    bool        `json:"required"`
	Fields      []FieldInfo `json:"fields"`
}

// FieldInfo is a serializable description of a schema field
type FieldInfo struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Type        FieldType   `json:"type"`
	Default     interface{} `json:"default,omitempty"`
	Required    bool        `json:"required,omitempty"`
	Options     []string    `json:"options,omitempty"`
}

// Describe returns the Info of m
func Describe(m Module) Info {
	info := Info{
		Name:        m.Name(),
		Description: m.Description(),
		DependsOn:   append([]string{}, m.DependsOn()...),
		Required:    IsRequired(m),
		Fields:      []FieldInfo{},
	}
	if s := m.Schema(); s != nil {
		for _, f := range s.Fields {
			info.Fields = append(info.Fields, FieldInfo{
				Name:        f.Name,
				Description: f.Description,
				Type:        f.Type,
				Default:     f.Default,
				Required:    f.Required,
				Options:     f.Options,
			})
		}
	}
	return info
}
