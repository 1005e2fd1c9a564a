// Package sheetstore implements the license record store on top of a Google
// Sheet. One row per license, columns A through V, identified by the key in
// column A. Rows are located by scanning column A on every operation; the
// sheet is small enough that a row index cache is not worth the staleness it
// would introduce when admins edit rows by hand.
package sheetstore
