// Package license implements the core license validation and device-binding
// logic for the IDME PBD Helper extension backend.
//
// A license is a single row in the record store, identified by its key
// (IDME-XXXX-XXXX-XXXX). Each license carries up to three device slots;
// validation binds the presenting device to a free slot on first contact and
// refreshes its last-used timestamp on every subsequent call. Slot assignment
// is first-fit with no eviction: a full license rejects new devices until one
// is explicitly deactivated.
//
// Expiry dates in the store are manually entered and arrive in several
// formats (DD/MM/YYYY, YYYY-MM-DD, MM-DD-YYYY, native date values). ParseDate
// normalizes all of them before comparison; strict single-format parsing is
// exactly the defect this package exists to avoid.
//
// The package depends on a Store interface for row access and never talks to
// Google Sheets directly; see internal/sheetstore for the production
// implementation.
package license
