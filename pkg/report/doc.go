// Package report turns Cin7 parent records into flat report rows.
//
// A Variant describes one report: which resource to page, which fields to
// request, which date field gates inclusion, the business predicates that
// apply and the CSV columns to emit. A Filter decides whether a record is in
// scope for a DateRange; an Expander fans a kept record out into one
// OutputRow per line item, converting money into the base currency and
// sharing the parent discount total evenly across the rows.
package report
