package models

// ForeignKey describes a column referencing another table.
type ForeignKey struct {
	Column    string `json:"column" yaml:"column"`
	RefTable  string `json:"ref_table" yaml:"ref_table"`
	RefColumn string `json:"ref_column" yaml:"ref_column"`
}

// Table is one table of a schema snapshot.
type Table struct {
	Name        string       `json:"name" yaml:"name"`
	Columns     []string     `json:"columns" yaml:"columns"`
	PrimaryKey  []string     `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty" yaml:"foreign_keys,omitempty"`
}

// Schema is an ordered schema snapshot. Table order is the order in which
// tables were declared or discovered.
type Schema struct {
	Tables []Table `json:"tables"`
}

// Table returns the table with the given name.
func (s Schema) Table(name string) (Table, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// SchemaFromColumns builds a Schema from parallel name/column lists,
// keeping the order of names.
func SchemaFromColumns(names []string, columns map[string][]string) Schema {
	s := Schema{Tables: make([]Table, 0, len(names))}
	for _, n := range names {
		s.Tables = append(s.Tables, Table{Name: n, Columns: columns[n]})
	}
	return s
}
