// Package jobsletter sends the weekly letter of jobs published during the
// previous week.
//
// A run reads the jobs, creates a Mailjet campaign draft, renders the
// letter into it and then either test-sends it to one address or dispatches
// it to the subscriber list. Every failure ends the run; the next weekly
// slot is the only retry. A draft created before a later step fails is left
// behind unsent.
package jobsletter
