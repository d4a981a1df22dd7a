// Package tutorctl is the operator command-line tool for TutorHub.
//
// It talks to the database directly through the same services as the HTTP
// API and covers the work that has no public endpoint: running migrations,
// reviewing tutor applications, seeding subjects and languages and creating
// administrator accounts.
//
// Commands can be passed as arguments for a single run, or typed at the
// interactive prompt when tutorctl starts without arguments.
package tutorctl
