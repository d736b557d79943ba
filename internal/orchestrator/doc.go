// Package orchestrator — цикл auto-analysis.
//
// Каждый проход:
//  1. перечитывает конфигурацию (при ошибке остаётся прежний снимок);
//  2. получает runs от discovery.Source;
//  3. для каждого run снова перечитывает конфигурацию и проходит stages
//     в объявленном порядке: Prepare → Execute → Finalize → Notify;
//  4. спит до следующего прохода (scan_interval_seconds или scan_cron).
//
// Runs обрабатываются пулом из max_concurrent_runs горутин, stages внутри
// run всегда последовательны.
//
// Остановка двухфазная: Drain переводит цикл в DRAINING, текущий проход
// дорабатывается до конца, после чего Run возвращает nil.
package orchestrator
