package backend

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/wait"
)

// StartCheckerDaemon runs CheckAll on the configured interval until stopCh
// closes. Domains are still checked strictly one at a time within a cycle;
// the interval only paces the cycles.
func (b *backend) StartCheckerDaemon(stopCh <-chan struct{}) {
	logrus.Infof("starting checker daemon. Check interval: %vs, delay between domains: %v",
		b.checkIntervalSeconds, b.delayBetweenDomains)
	wait.JitterUntil(b.runCycle, time.Duration(b.checkIntervalSeconds)*time.Second, .002, true, stopCh)
}

func (b *backend) runCycle() {
	changed, err := b.CheckAll(context.Background())
	if err != nil {
		logrus.Errorf("problem checking domains: %v", err)
		return
	}
	logrus.Infof("check cycle complete. Changes detected: %v", changed)
}
