// Package domain models Maryland accidental overdose death counts and the
// county boundaries they are mapped onto.
//
// # Data Source
//
// Death counts come from the Maryland Department of Health annual reports
// on drug- and alcohol-related intoxication deaths, pre-loaded into a
// SQLite file with a single table:
//
//	substances(id, name, county, year, deaths)
//
// One row per (substance, county, year). The "name" column holds the
// substance name exactly as listed in [Substances]; "county" holds the
// jurisdiction name as it appears in the state's county boundary
// shapefile ("Allegany", "Baltimore City", "St. Mary's", ...). A NULL
// "deaths" value is read as zero.
//
// Boundaries come from the Maryland iMAP open data portal as zipped
// shapefiles (state outline and generalized county boundaries), in
// WGS-84 longitude/latitude.
//
// # Request Rules
//
// Exactly one (year, substance) pair is mapped per run:
//
//	Year:      2013 through 2018 inclusive (see [CheckYear]).
//	Substance: one of ten names, matched case-insensitively and
//	           normalized to its canonical spelling (see [CheckSubstance]).
//
// The output file name is derived from the pair alone, see
// [MapRequest.FileName]: "2015_cocaine.html".
package domain
