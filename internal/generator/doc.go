// Package generator — клиент внешнего процесса генерации контента.
//
// Генератор вызывается как подпроцесс:
//
//	<binary> [base args...] create --task-id <id> --topic <topic> [...] [--callback-url <url>] --json
//	<binary> [base args...] status --task-id <id> --json
//	<binary> [base args...] result --task-id <id> --json
//
// На stdout ожидается JSON; при ошибке процесс завершается с ненулевым
// кодом и пишет причину в stderr. Каждый вызов ограничен таймаутом.
package generator
