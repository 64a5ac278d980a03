// Package seed prepares a BPM database for the "Обработка заявки" demo
// process: users and groups, task responsibles, document-type permissions and
// start conditions. What gets written is described by a Plan.
package seed
