// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metric

import (
	"fmt"
	"io"
	"strings"

	"github.com/golang/protobuf/proto"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// PrometheusPrefix is prepended to every exported metric name.
const PrometheusPrefix = "jos"

// PrometheusName converts a metric name such as "/syscalls/count" to the
// Prometheus name "jos_syscalls_count".
func PrometheusName(name string) string {
	return PrometheusPrefix + strings.ReplaceAll(name, "/", "_")
}

// metricFamilies converts all registered metrics to Prometheus metric
// families, in name order.
func metricFamilies() []*dto.MetricFamily {
	allMetrics.mu.RLock()
	defer allMetrics.mu.RUnlock()

	families := make([]*dto.MetricFamily, 0, len(allMetrics.uint64Metrics))
	for _, name := range sortedNamesLocked() {
		m := allMetrics.uint64Metrics[name]
		family := &dto.MetricFamily{
			Name: proto.String(PrometheusName(name)),
			Help: proto.String(m.description),
			Type: dto.MetricType_COUNTER.Enum(),
		}
		for key := range m.fields {
			v := m.fields[key].Load()
			if len(m.fieldMapper.fields) != 0 && v == 0 {
				continue
			}
			var labels []*dto.LabelPair
			for i, fv := range m.fieldMapper.keyToMultiField(key) {
				labels = append(labels, &dto.LabelPair{
					Name:  proto.String(m.fieldMapper.fields[i].name),
					Value: proto.String(fv),
				})
			}
			family.Metric = append(family.Metric, &dto.Metric{
				Label:   labels,
				Counter: &dto.Counter{Value: proto.Float64(float64(v))},
			})
		}
		if len(family.Metric) == 0 {
			// A family without samples is not valid text exposition.
			continue
		}
		families = append(families, family)
	}
	return families
}

// WritePrometheus writes all registered metrics to w in the Prometheus text
// exposition format.
func WritePrometheus(w io.Writer) error {
	for _, family := range metricFamilies() {
		if _, err := expfmt.MetricFamilyToText(w, family); err != nil {
			return fmt.Errorf("writing metric %q: %w", family.GetName(), err)
		}
	}
	return nil
}
