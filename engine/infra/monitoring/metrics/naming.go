package metrics

import "strings"

const namespace = "groupops"

// MetricName prefixes name with the service namespace.
func MetricName(name string) string {
	if strings.HasPrefix(name, namespace+"_") {
		return name
	}
	return namespace + "_" + name
}

// MetricNameWithSubsystem builds namespace_subsystem_name.
func MetricNameWithSubsystem(subsystem, name string) string {
	subsystem = strings.Trim(subsystem, "_")
	if name == "" {
		return namespace + "_" + subsystem
	}
	if subsystem == "" {
		return MetricName(name)
	}
	return namespace + "_" + subsystem + "_" + name
}
