// Package priority derives the negotiation order of a meeting.
//
// A meeting's category selects a designated role (interviewer, superior,
// project lead, instructor or the requester). The holder of that role becomes
// the main coordinator and is placed first; ties are broken by rank and by
// external before internal. The rule table is data and may be loaded from
// YAML:
//
//	version: "1"
//	external_first: true
//	ranks: {executive: 3, manager: 2, staff: 1}
//	rules:
//	  - category: interview
//	    role: interviewer
//	  - category: other
//	    role: requester
package priority
