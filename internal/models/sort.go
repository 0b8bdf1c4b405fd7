package models

import (
	"fmt"
	"sort"
	"strings"
)

// TitleSortFields lists the columns a title listing can be sorted by.
var TitleSortFields = []string{"title", "assignDate", "endDate", "status"}

func titleSortKey(t *ProjectTitle, field string) string {
	switch field {
	case "assignDate":
		return t.AssignDate.String()
	case "endDate":
		return t.EndDate.String()
	case "status":
		return string(t.Status)
	default:
		return t.Title
	}
}

// SortTitles orders titles in place by the string value of field.
// Ties keep their original order. An empty field leaves titles untouched.
func SortTitles(titles []*ProjectTitle, field string, desc bool) error {
	if field == "" {
		return nil
	}
	valid := false
	for _, f := range TitleSortFields {
		if f == field {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unknown sort field %q: want one of %s", field, strings.Join(TitleSortFields, ", "))
	}

	sort.SliceStable(titles, func(i, j int) bool {
		a, b := titleSortKey(titles[i], field), titleSortKey(titles[j], field)
		if desc {
			return a > b
		}
		return a < b
	})
	return nil
}
