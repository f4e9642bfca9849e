package daemon

// unitTemplate is the systemd unit installed by Install. Restart=always
// brings the logger back after an unrecoverable loop error.
const unitTemplate = `[Unit]
Description=wqlog water quality logger
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
ExecStart=/path/to/wqlog daemon --config /path/to/config.yaml --daemon-socket /path/to/wqlog.sock ARGS
EnvironmentFile=-/etc/wqlog/env
Restart=always
RestartSec=30

[Install]
WantedBy=multi-user.target
`
