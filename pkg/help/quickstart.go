package help

const QuickstartYAML = `# vitiscrape Quick Start

options:
  producao: "Production (opt_02)"
  processamento: "Processing, by grape type (opt_03)"
  comercializacao: "Commercialization (opt_04)"
  importacao: "Imports, by product (opt_05)"
  exportacao: "Exports, by product (opt_06)"

commands:
  full_sweep: |
    vitiscrape sweep --output vitibrasil.json

  bounded_scrape: |
    vitiscrape scrape --option exportacao --from 2018 --to 2023

  inspect_portal: |
    vitiscrape metadata --option processamento

  list_runs: |
    vitiscrape history --runs

  option_history: |
    vitiscrape history --option producao --from-year 2000
    vitiscrape history --option producao --top 5

  forecast: |
    vitiscrape forecast --option comercializacao --from-year 2010
    vitiscrape forecast --option exportacao --input vitibrasil.json

  with_metrics: |
    vitiscrape sweep --metrics-addr :9090 &
    curl -s localhost:9090/metrics | grep vitiscrape_

config:
  file: "config.yaml (base_url, workers, max_retries, request_delay, cache_dir, ...)"
  env: "VITISCRAPE_WORKERS=8, VITISCRAPE_CACHE_DIR=.cache, also read from .env"
  precedence: "defaults < config.yaml < .env < environment < flags"

fallback:
  - "Failed pages yield empty batches; the sweep continues"
  - "If the portal yields nothing at all, the latest stored run is printed (source: cache)"

exit_codes:
  - "0: success"
  - "1: invalid arguments, interrupted sweep, or no data anywhere"
`
