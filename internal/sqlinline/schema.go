package sqlinline

// QEnsureSchema creates every table the Postgres backend reads or writes.
// It runs without arguments so pgx sends it over the simple protocol.
const QEnsureSchema = `--sql addb97b2-c787-485b-be6d-e6ea665d0810
create table if not exists first_scenes (
    id uuid primary key default gen_random_uuid(),
    portrait_id text not null,
    build_type text not null,
    narration text not null default '',
    visual_scene text not null default '',
    image_url text,
    audio_url text,
    choices jsonb not null default '[]'::jsonb,
    retry_count integer not null default 0,
    last_error text,
    is_successful boolean not null default false,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now(),
    unique (portrait_id, build_type)
);
create index if not exists first_scenes_successful_idx
    on first_scenes (portrait_id, build_type) where is_successful;

create table if not exists character_builds (
    id uuid primary key default gen_random_uuid(),
    portrait_id text not null,
    build_type text not null,
    image_url text not null,
    created_at timestamptz not null default now()
);
create index if not exists character_builds_lookup_idx
    on character_builds (portrait_id, build_type, created_at desc);

create table if not exists integration_tokens (
    id uuid primary key default gen_random_uuid(),
    provider text not null unique,
    token text not null,
    properties jsonb not null default '{}'::jsonb,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);

create table if not exists pregen_jobs (
    id uuid primary key,
    status text not null default 'QUEUED',
    request jsonb not null default '{}'::jsonb,
    result jsonb,
    error text,
    created_at timestamptz not null default now(),
    started_at timestamptz,
    finished_at timestamptz,
    updated_at timestamptz not null default now()
);
create index if not exists pregen_jobs_queued_idx
    on pregen_jobs (created_at) where status = 'QUEUED';
`
