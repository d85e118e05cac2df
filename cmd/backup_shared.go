package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/eslsoft/hifznet/internal/usecase/backup"
)

// tablesFromConfig reads a table list from viper and validates every name
// against the backup registry so typos fail before touching the database.
func tablesFromConfig(key string) ([]string, error) {
	values := viper.GetStringSlice(key)
	if len(values) == 0 {
		return nil, nil
	}

	known := make(map[string]struct{})
	for _, name := range backup.TableNames() {
		known[name] = struct{}{}
	}

	result := make([]string, 0, len(values))
	for _, value := range values {
		name := strings.ToLower(strings.TrimSpace(value))
		if name == "" {
			continue
		}
		if _, ok := known[name]; !ok {
			return nil, unknownTableError(name)
		}
		result = append(result, name)
	}
	if len(result) == 0 {
		return nil, nil
	}
	return result, nil
}

type unknownTableError string

func (e unknownTableError) Error() string {
	return "unknown table " + string(e) + "; valid tables: " + strings.Join(backup.TableNames(), ", ")
}

func bindFlagToViper(key string, flag *pflag.Flag) {
	if flag == nil {
		return
	}
	cobra.CheckErr(viper.BindPFlag(key, flag))
}
