package lang

// Dockerfile bodies share a fixed internal layout so the executor stays
// environment-agnostic across languages:
//
//	/app/repo   - source checkout (build context)
//	/repo       - legacy alias symlink
//	/saved/ENV  - toolchain and cached dependencies
//	/workspace  - orchestrator mount point
//
// Each body is a text/template; internal/envbuild supplies the data
// (base image, healed package list, toolchain channel, proxy settings).

const goDockerfile = `FROM {{.BaseImage}}
ENV DEBIAN_FRONTEND=noninteractive
RUN apt-get update && apt-get install -y --no-install-recommends \
    git ca-certificates curl build-essential pkg-config{{range .Packages}} {{.}}{{end}} \
    && rm -rf /var/lib/apt/lists/*
RUN mkdir -p /saved/ENV /workspace \
    && curl -fsSL https://go.dev/dl/go1.25.5.linux-amd64.tar.gz | tar -C /saved/ENV -xz
ENV PATH=/saved/ENV/go/bin:$PATH GOPATH=/saved/ENV/gopath
{{if .GoProxyFallback}}ENV GOPROXY=https://proxy.golang.org,https://goproxy.io,direct
{{end}}COPY . /app/repo
WORKDIR /app/repo
RUN ln -sfn /app/repo /repo
RUN go mod download
RUN go build ./... || true
`

const rustDockerfile = `FROM {{.BaseImage}}
ENV DEBIAN_FRONTEND=noninteractive
RUN apt-get update && apt-get install -y --no-install-recommends \
    git ca-certificates curl build-essential pkg-config{{range .Packages}} {{.}}{{end}} \
    && rm -rf /var/lib/apt/lists/*
RUN mkdir -p /saved/ENV /workspace
ENV RUSTUP_HOME=/saved/ENV/rustup CARGO_HOME=/saved/ENV/cargo
RUN curl -fsSL https://sh.rustup.rs | sh -s -- -y --default-toolchain {{.Toolchain}} --profile minimal
ENV PATH=/saved/ENV/cargo/bin:$PATH
COPY . /app/repo
WORKDIR /app/repo
RUN ln -sfn /app/repo /repo
RUN cargo fetch
RUN cargo build --tests || true
`

const pythonDockerfile = `FROM {{.BaseImage}}
ENV DEBIAN_FRONTEND=noninteractive
RUN apt-get update && apt-get install -y --no-install-recommends \
    git ca-certificates python3 python3-venv python3-pip build-essential pkg-config{{range .Packages}} {{.}}{{end}} \
    && rm -rf /var/lib/apt/lists/*
RUN mkdir -p /saved/ENV /workspace && python3 -m venv /saved/venv/ENV
ENV PATH=/saved/venv/ENV/bin:$PATH
COPY . /app/repo
WORKDIR /app/repo
RUN ln -sfn /app/repo /repo
RUN pip install --no-cache-dir -e . || pip install --no-cache-dir -r requirements.txt || true
RUN pip install --no-cache-dir pytest
`

const nodeDockerfile = `FROM {{.BaseImage}}
ENV DEBIAN_FRONTEND=noninteractive
RUN apt-get update && apt-get install -y --no-install-recommends \
    git ca-certificates curl build-essential{{range .Packages}} {{.}}{{end}} \
    && rm -rf /var/lib/apt/lists/*
RUN curl -fsSL https://deb.nodesource.com/setup_22.x | bash - \
    && apt-get install -y --no-install-recommends nodejs \
    && rm -rf /var/lib/apt/lists/*
RUN mkdir -p /saved/ENV /workspace
ENV NPM_CONFIG_CACHE=/saved/ENV/npm-cache
COPY . /app/repo
WORKDIR /app/repo
RUN ln -sfn /app/repo /repo
RUN npm ci || npm install
`
