package domain

// MarylandJurisdictions lists the 23 counties plus Baltimore City that
// report overdose deaths, in the order the health department publishes them.
var MarylandJurisdictions = []string{
	"Allegany",
	"Anne Arundel",
	"Baltimore City",
	"Baltimore County",
	"Calvert",
	"Caroline",
	"Carroll",
	"Cecil",
	"Charles",
	"Dorchester",
	"Frederick",
	"Garrett",
	"Harford",
	"Howard",
	"Kent",
	"Montgomery",
	"Prince George's",
	"Queen Anne's",
	"St. Mary's",
	"Somerset",
	"Talbot",
	"Washington",
	"Wicomico",
	"Worcester",
}
