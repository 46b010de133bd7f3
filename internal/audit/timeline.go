package audit

import (
	"html/template"
	"time"
)

// TimelineFilters narrows the audit timeline. Zero values match everything.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	User     string
	Action   string
	Barcode  string
	Page     int
	PageSize int
}

// TimelineRow is one audit log entry as displayed.
type TimelineRow struct {
	At        time.Time
	Timestamp string
	User      string
	Action    string
	Barcode   string
	Product   string
	Quantity  int
	QtyBefore int
	QtyAfter  int
	Details   string
	ClientIP  string
}

// PagingInfo holds simple page navigation.
type PagingInfo struct {
	Page     int
	HasNext  bool
	PageSize int
	PrevPage int
	NextPage int
	Total    int
}

// FiltersViewModel echoes the filters back into the page form.
type FiltersViewModel struct {
	From    string
	To      string
	User    string
	Action  string
	Barcode string
}

// ViewModel is the data behind the audit page.
type ViewModel struct {
	Filters FiltersViewModel
	Actions []string
	Rows    []TimelineRow
	Paging  PagingInfo
	Links   Links
}

// Links are the page and export URLs carrying the current filters.
type Links struct {
	Prev template.URL
	Next template.URL
	CSV  template.URL
	XLSX template.URL
}
