// Package mapping transforms internal business records (tickets,
// invoices, budgets) into the external prediction service's wire schema
// and back.
//
// Each model type has one Mapper. Outbound mapping fails loud only when
// a required identity field is missing; optional gaps are filled with
// documented defaults and reported as warnings that degrade the result's
// data-quality grade. Inbound mapping defensively defaults every
// optional response field. CacheKey produces deterministic,
// time-bucketed keys so repeated predictions for the same record within
// a bucket can be served from cache.
package mapping
