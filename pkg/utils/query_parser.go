package utils

import (
	"net/url"
	"strconv"
	"strings"

	"field-service/pkg/types"
)

const (
	defaultLimit = 20
	maxLimit     = 500
)

// ParseFilterFromQuery разбирает параметры списка:
// filter[state]=assigned,in_progress, search, sort=-scheduled_at или sort[field]=asc, limit/offset/page.
func ParseFilterFromQuery(query url.Values) types.Filter {
	filter := types.Filter{
		Filter:         make(map[string]interface{}),
		Sort:           make(map[string]string),
		Limit:          defaultLimit,
		Page:           1,
		WithPagination: true,
	}

	for key, values := range query {
		if len(values) == 0 || values[0] == "" {
			continue
		}
		switch {
		case strings.HasPrefix(key, "filter[") && strings.HasSuffix(key, "]"):
			filter.Filter[key[7:len(key)-1]] = values[0]
		case strings.HasPrefix(key, "sort[") && strings.HasSuffix(key, "]"):
			filter.Sort[key[5:len(key)-1]] = strings.ToLower(values[0])
		}
	}

	if sort := query.Get("sort"); sort != "" {
		if strings.HasPrefix(sort, "-") {
			filter.Sort[sort[1:]] = "desc"
		} else {
			filter.Sort[sort] = "asc"
		}
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			filter.Limit = min(l, maxLimit)
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			filter.Offset = o
			filter.Page = o/filter.Limit + 1
		}
	}
	if pageStr := query.Get("page"); pageStr != "" && filter.Offset == 0 { // page имеет приоритет только если offset не задан
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			filter.Page = p
			filter.Offset = (p - 1) * filter.Limit
		}
	}
	if all := query.Get("all"); all == "true" {
		filter.WithPagination = false
	}

	filter.Search = strings.TrimSpace(query.Get("search"))
	return filter
}
