package config

// Setting keys understood by the deployment pipeline.
const (
	KeyClusterID        = "cluster_id"
	KeyHostname         = "hostname"
	KeyUsername         = "username"
	KeyPassword         = "password"
	KeyPort             = "port"
	KeyPrivateKeyPath   = "private_key_path"
	KeyUseAgent         = "use_agent"
	KeyCheckHostKey     = "check_hostkey"
	KeyKnownHostsPath   = "known_hosts_path"
	KeySSHAlias         = "ssh_alias"
	KeySSHConfigPath    = "ssh_config_path"
	KeyRemoteDir        = "remote_dir"
	KeyArchivePath      = "archive_path"
	KeyEnvExportCommand = "env_export_command"
)

// secretKeys are masked when prompted for.
var secretKeys = map[string]bool{
	KeyPassword: true,
}

// IsSecret reports whether the value of key should not be echoed or logged.
func IsSecret(key string) bool {
	return secretKeys[normalizeKey(key)]
}
